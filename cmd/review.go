package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/application"
	"github.com/candigo/candigo/internal/logger"
	"github.com/candigo/candigo/internal/store"
)

const (
	PromptBack       = "back"
	PromptMarkSent   = "Mark as sent (I delivered this application)"
	PromptMarkFailed = "Mark as failed"
	PromptDetails    = "Show details"
)

var errExit = errors.New("exit requested")

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Walk through prepared applications and record their manual delivery",
	Run: func(_ *cobra.Command, _ []string) {
		review()
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	storePath := defaultStorePath
	if config != nil && config.Store != nil && config.Store.Path != "" {
		storePath = config.Store.Path
	}
	st, err := store.NewSQLiteStore(storePath)
	if err != nil {
		logger.Fatal("opening the tracking store", zap.Error(err))
	}
	defer st.Close()

	for {
		if err := reviewOnce(ctx, st, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// reviewOnce shows every application awaiting manual completion and
// applies the chosen action. SUBMITTED records are included: those had
// their delivery started but never confirmed.
func reviewOnce(ctx context.Context, st store.Store, logger *zap.Logger) error {
	records, err := st.List(ctx, application.StateMaterialsReady, application.StateSubmitted)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		logger.Info("nothing to review", zap.String("reason", "no applications awaiting manual delivery"))
		return errExit
	}

	items := make([]string, 0, len(records))
	for _, rec := range records {
		items = append(items, fmt.Sprintf("%s / %s / %s [%s]",
			rec.Company, rec.Title, rec.Location, rec.State,
		))
	}

	recordPrompt := promptui.Select{
		Label: "Choose an application and press ENTER",
		Items: append(items, PromptBack),
		Size:  10,
	}

	idx, selected, err := recordPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return errExit
	}

	return reviewRecord(ctx, st, records[idx], logger)
}

func reviewRecord(ctx context.Context, st store.Store, rec *application.Record, logger *zap.Logger) error {
	actionPrompt := promptui.Select{
		Label: fmt.Sprintf("%s / %s", rec.Company, rec.Title),
		Items: []string{PromptMarkSent, PromptMarkFailed, PromptDetails, PromptBack},
	}

	_, action, err := actionPrompt.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptBack:
		return nil
	case PromptDetails:
		printRecord(rec)
		return reviewRecord(ctx, st, rec, logger)
	case PromptMarkSent:
		return markSent(ctx, st, rec, logger)
	case PromptMarkFailed:
		return markFailed(ctx, st, rec, logger)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// markSent records a manual delivery, walking the record through
// SUBMITTED to SENT so the state history stays complete.
func markSent(ctx context.Context, st store.Store, rec *application.Record, logger *zap.Logger) error {
	now := time.Now().UTC()

	if rec.State == application.StateMaterialsReady {
		if err := rec.Advance(application.StateSubmitted, now); err != nil {
			return err
		}
		if err := st.Upsert(ctx, rec); err != nil {
			return err
		}
	}

	if err := rec.Advance(application.StateSent, now); err != nil {
		return err
	}
	rec.LastError = ""
	if err := st.Upsert(ctx, rec); err != nil {
		return err
	}

	logger.Info("application marked as sent",
		zap.String("company", rec.Company),
		zap.String("title", rec.Title),
	)
	return nil
}

func markFailed(ctx context.Context, st store.Store, rec *application.Record, logger *zap.Logger) error {
	reasonPrompt := promptui.Prompt{
		Label:   "Reason",
		Default: "abandoned during review",
	}
	reason, err := reasonPrompt.Run()
	if err != nil {
		return err
	}

	rec.LastError = strings.TrimSpace(reason)
	if err := rec.Advance(application.StateFailed, time.Now().UTC()); err != nil {
		return err
	}
	if err := st.Upsert(ctx, rec); err != nil {
		return err
	}

	logger.Info("application marked as failed",
		zap.String("company", rec.Company),
		zap.String("reason", rec.LastError),
	)
	return nil
}

func printRecord(rec *application.Record) {
	fmt.Printf("\n%s / %s\n", rec.Company, rec.Title)
	fmt.Printf("  state:     %s\n", rec.State)
	fmt.Printf("  location:  %s\n", rec.Location)
	fmt.Printf("  url:       %s\n", rec.URL)
	fmt.Printf("  score:     %.2f\n", rec.Score)
	fmt.Printf("  attempts:  %d\n", rec.Attempts)
	if rec.MaterialsPath != "" {
		fmt.Printf("  materials: %s\n", rec.MaterialsPath)
	}
	if rec.LastError != "" {
		fmt.Printf("  last err:  %s\n", rec.LastError)
	}
	fmt.Println()
}
