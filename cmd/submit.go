package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dronreef2/3dPot2-sub000/config"
	"github.com/dronreef2/3dPot2-sub000/core/cache"
	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/models"
	"github.com/dronreef2/3dPot2-sub000/core/monitor"
	"github.com/dronreef2/3dPot2-sub000/core/spec"
	"github.com/dronreef2/3dPot2-sub000/core/store"
)

var submitTimeout time.Duration

var submitCmd = &cobra.Command{
	Use:   "submit <spec.yaml>",
	Short: "Submit a simulation spec and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(args[0])
	},
}

func init() {
	submitCmd.Flags().DurationVar(&submitTimeout, "timeout", 10*time.Minute, "give up after this long")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(specPath string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("read spec: %w", err)
	}
	req, err := spec.ParseSimulationSpec(string(data))
	if err != nil {
		return err
	}

	engineClient := client.New(cfg.EngineURL, cfg.EngineToken)
	var st *store.Store
	mon := monitor.New(engineClient, monitor.Config{
		PollInterval:    cfg.PollInterval,
		ReconnectBase:   cfg.ReconnectBase,
		ReconnectMax:    cfg.ReconnectMax,
		MaxPollFailures: cfg.MaxPollFailures,
		OnAuthError: func(err error) {
			if st != nil {
				st.MarkAuthExpired(err)
			}
		},
	})
	st = store.New(engineClient, cache.New(cfg.CacheMaxEntries), mon, nil)

	done := make(chan models.JobStatus, 1)
	unsubscribe := st.Subscribe(func(snap store.Snapshot) {
		if snap.Job == nil {
			return
		}
		if snap.Job.Status == models.StatusRunning {
			logrus.Infof("progress %.0f%%", snap.Job.Progress)
		}
		if snap.Job.Status.Terminal() {
			select {
			case done <- snap.Job.Status:
			default:
			}
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	job, err := st.Submit(ctx, req)
	if err != nil {
		if ve, ok := store.AsValidationError(err); ok {
			for _, msg := range ve.Outcome.Errors {
				logrus.Errorf("invalid: %s", msg)
			}
		}
		return err
	}
	logrus.Infof("job %s submitted (%s)", job.ID, job.Kind)
	for _, warning := range job.Warnings {
		logrus.Warnf("warning: %s", warning)
	}

	if !job.Status.Terminal() {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for job %s", job.ID)
		}
	}

	final := st.Current()
	switch final.Job.Status {
	case models.StatusCompleted:
		out, err := json.MarshalIndent(final.Job.Results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	case models.StatusFailed:
		return fmt.Errorf("simulation failed: %s", final.Job.ErrorMessage)
	default:
		return fmt.Errorf("simulation ended as %s", final.Job.Status)
	}
}
