package cmd

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flowsweep/flowsweep/pkg/flowsweep/cleanup"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/config"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/output"
	"github.com/flowsweep/flowsweep/pkg/flowsweep/salesforce"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [INSTANCE...]",
		Short: "Delete old flow versions across the configured orgs",
		Long: "Run the cleanup pipeline for every configured org, or only for the\n" +
			"instances named as arguments. Each org authenticates through its own\n" +
			"browser handshake and is processed in configuration order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			orgs, err := selectOrgs(rt.cfg, args)
			if err != nil {
				return err
			}

			sessionID := time.Now().Format("20060102_150405")
			logger, closeLogger, err := buildSessionLogger(rt.verbose, rt.LogDir(), sessionID)
			if err != nil {
				return err
			}
			defer closeLogger()

			orchestrator := &cleanup.Orchestrator{
				Auth:   &cleanup.BrowserAuthenticator{Output: rt.Writer()},
				NewAPI: cleanup.NewRESTFactory(),
				Logger: logger,
				OnCandidates: func(org config.Org, versions []salesforce.FlowVersion) {
					path, err := output.SaveDeletionList(rt.LogDir(), sessionID+"_"+hostLabel(org.Instance), org.Instance, versions)
					if err != nil {
						logger.Warn("could not save deletion list", zap.Error(err))
						return
					}
					logger.Info("deletion list saved", zap.String("path", path))
				},
			}
			if !rt.nonInteractive && !rt.assumeYes {
				in := bufio.NewReader(cmd.InOrStdin())
				orchestrator.ConfirmProduction = func(org config.Org, profile *salesforce.OrgProfile) (bool, error) {
					msg := fmt.Sprintf("WARNING: %s is a PRODUCTION org (%s).\nType YES to delete flow versions from it: ", org.Instance, profile.Name)
					return promptExact(in, rt.Writer(), msg, "YES")
				}
				orchestrator.ConfirmDeletion = func(org config.Org, versions []salesforce.FlowVersion) (bool, error) {
					output.WriteVersionTable(rt.Writer(), versions)
					msg := fmt.Sprintf("About to delete %d flow version(s) from %s.\nType DELETE to proceed: ", len(versions), org.Instance)
					return promptExact(in, rt.Writer(), msg, "DELETE")
				}
			} else if rt.assumeYes {
				orchestrator.ConfirmProduction = func(config.Org, *salesforce.OrgProfile) (bool, error) { return true, nil }
			}

			results := orchestrator.Run(cmd.Context(), orgs)
			if err := renderResults(rt, results); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Failed() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d org(s) failed", failed, len(results))
			}
			return nil
		},
	}
	return cmd
}

func renderResults(rt *runtimeState, results []cleanup.RunResult) error {
	format := output.Format(rt.OutputFormat())
	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.WriteObject(rt.Writer(), format, results)
	case output.FormatTable, output.FormatWide:
		output.WriteResultTable(rt.Writer(), results)
		if format == output.FormatWide {
			for _, r := range results {
				if len(r.Records) == 0 {
					continue
				}
				_, _ = fmt.Fprintf(rt.Writer(), "\n%s\n", r.Instance)
				output.WriteRecordTable(rt.Writer(), r.Records)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// buildSessionLogger writes console output to stderr and, when a log
// directory is configured, mirrors the run into a per-session log file.
func buildSessionLogger(verbose bool, logDir, sessionID string) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encoder := zapcore.NewConsoleEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	closeLogger := func() {}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		path := filepath.Join(logDir, fmt.Sprintf("flow_cleanup_%s.log", sessionID))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open session log: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), zapcore.DebugLevel))
		closeLogger = func() { _ = f.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, func() {
		_ = logger.Sync()
		closeLogger()
	}, nil
}

// hostLabel reduces an instance URL to a filename-safe host tag.
func hostLabel(instance string) string {
	u, err := url.Parse(instance)
	if err != nil || u.Host == "" {
		return "org"
	}
	return u.Hostname()
}
