package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbleroy/fieldops/app"
	"github.com/jbleroy/fieldops/config"
	"github.com/jbleroy/fieldops/core/model"
)

var (
	missionTitle string
	missionLat   float64
	missionLng   float64
	offerTTLMin  int

	acceptMissionID string
	acceptCandidate string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Create a test mission and broadcast it to the candidate pool",
	RunE:  publishMission,
}

var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept an offer on behalf of a candidate",
	RunE:  acceptMission,
}

func init() {
	publishCmd.Flags().StringVar(&missionTitle, "title", "test mission", "mission title")
	publishCmd.Flags().Float64Var(&missionLat, "lat", 48.8566, "mission latitude")
	publishCmd.Flags().Float64Var(&missionLng, "lng", 2.3522, "mission longitude")
	publishCmd.Flags().IntVar(&offerTTLMin, "ttl", 30, "offer TTL in minutes")
	acceptCmd.Flags().StringVar(&acceptMissionID, "mission", "", "mission identifier")
	acceptCmd.Flags().StringVar(&acceptCandidate, "candidate", "", "candidate identifier")
	_ = acceptCmd.MarkFlagRequired("mission")
	_ = acceptCmd.MarkFlagRequired("candidate")
	rootCmd.AddCommand(publishCmd, acceptCmd)
}

func publishMission(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	mission, err := svc.Manager.CreateMission(ctx, model.Mission{
		Title:    missionTitle,
		Location: &model.Coordinate{Lat: missionLat, Lng: missionLng},
	})
	if err != nil {
		return fmt.Errorf("create mission: %w", err)
	}
	offers, err := svc.Manager.Publish(ctx, mission.ID, time.Duration(offerTTLMin)*time.Minute, false)
	if err != nil {
		return fmt.Errorf("publish mission: %w", err)
	}
	fmt.Printf("mission %s broadcast: %d offers\n", mission.ID, len(offers))
	for _, o := range offers {
		fmt.Printf("  %s -> %s (expires %s)\n", o.ID, o.CandidateID, o.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func acceptMission(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	outcome, err := svc.Manager.Accept(ctx, acceptMissionID, acceptCandidate)
	fmt.Printf("accept %s by %s: %s\n", acceptMissionID, acceptCandidate, outcome)
	return err
}

func newService() (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cfg)
}
