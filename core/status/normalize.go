package status

import "strings"

// Display is the six-value canonical status exposed to read-side consumers.
// Historical data carries these states under many spellings; Normalize is
// the single translation point.
type Display int

const (
	Nouveau Display = iota
	Publiee
	Assignee
	EnCours
	Bloque
	Termine
)

// String returns the canonical display spelling, accents included.
func (d Display) String() string {
	switch d {
	case Nouveau:
		return "Nouveau"
	case Publiee:
		return "Publiée"
	case Assignee:
		return "Assignée"
	case EnCours:
		return "En cours"
	case Bloque:
		return "Bloqué"
	case Termine:
		return "Terminé"
	default:
		return "Nouveau"
	}
}

// accentFolder strips the diacritics that appear in historical status rows.
var accentFolder = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c",
)

// synonyms maps folded historical spellings to their canonical state. The
// keys are lowercase, accent-free and space-normalized; fold() produces
// exactly that form.
var synonyms = map[string]Display{
	"nouveau":   Nouveau,
	"nouvelle":  Nouveau,
	"new":       Nouveau,
	"draft":     Nouveau,
	"brouillon": Nouveau,

	"publiee":   Publiee,
	"publie":    Publiee,
	"publier":   Publiee,
	"published": Publiee,
	"publish":   Publiee,
	"ouverte":   Publiee,
	"open":      Publiee,

	"assignee":  Assignee,
	"assigne":   Assignee,
	"assigned":  Assignee,
	"attribuee": Assignee,
	"affectee":  Assignee,
	"planifiee": Assignee,
	"scheduled": Assignee,

	"en cours":    EnCours,
	"encours":     EnCours,
	"in progress": EnCours,
	"in_progress": EnCours,
	"inprogress":  EnCours,
	"started":     EnCours,
	"demarree":    EnCours,
	"en route":    EnCours,
	"enroute":     EnCours,
	"en_route":    EnCours,

	"bloque":    Bloque,
	"bloquee":   Bloque,
	"blocked":   Bloque,
	"paused":    Bloque,
	"pause":     Bloque,
	"en pause":  Bloque,
	"suspendue": Bloque,

	"termine":   Termine,
	"terminee":  Termine,
	"done":      Termine,
	"complete":  Termine,
	"completed": Termine,
	"finished":  Termine,
	"finie":     Termine,
	"achevee":   Termine,
	"cloturee":  Termine,
	"cloture":   Termine,
	"closed":    Termine,
	"annulee":   Termine,
	"cancelled": Termine,
	"canceled":  Termine,
	"facturee":  Termine,
	"invoiced":  Termine,
	"payee":     Termine,
	"paid":      Termine,
}

func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = accentFolder.Replace(s)
	s = strings.Join(strings.Fields(strings.NewReplacer("-", " ").Replace(s)), " ")
	return s
}

// Normalize collapses an arbitrary status string into one of the six
// canonical display states. Unknown or empty input yields Nouveau. The
// function is total and idempotent: every canonical spelling maps back to
// itself.
func Normalize(raw string) Display {
	folded := fold(raw)
	if d, ok := synonyms[folded]; ok {
		return d
	}
	// Tolerate underscore-joined historical variants ("en_cours").
	if d, ok := synonyms[strings.ReplaceAll(folded, "_", " ")]; ok {
		return d
	}
	return Nouveau
}
