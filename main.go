// HVACPulse — HVAC edge device heartbeat recorder & fleet state API.
// Author: vesaa | License: MIT | https://github.com/vesaa/hvacpulse
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vesaa/hvacpulse/internal/config"
	"github.com/vesaa/hvacpulse/internal/logging"
	"github.com/vesaa/hvacpulse/internal/probe"
	"github.com/vesaa/hvacpulse/internal/server"
	"go.uber.org/zap"
)

const asciiLogo = `
  ██╗  ██╗██╗   ██╗ █████╗  ██████╗██████╗ ██╗   ██╗██╗     ███████╗███████╗
  ██║  ██║██║   ██║██╔══██╗██╔════╝██╔══██╗██║   ██║██║     ██╔════╝██╔════╝
  ███████║██║   ██║███████║██║     ██████╔╝██║   ██║██║     ███████╗█████╗
  ██╔══██║╚██╗ ██╔╝██╔══██║██║     ██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝
  ██║  ██║ ╚████╔╝ ██║  ██║╚██████╗██║     ╚██████╔╝███████╗███████║███████╗
  ╚═╝  ╚═╝  ╚═══╝  ╚═╝  ╚═╝ ╚═════╝╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝
`

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Printf("%s\n", asciiLogo)
	fmt.Printf("  ► HVACPulse %s  |  Author: vesaa  |  Mode: %s\n\n", version, mode)
}

func main() {
	root := &cobra.Command{
		Use:   "hvacpulse",
		Short: "HVACPulse — HVAC device heartbeat recorder & fleet state API",
		Long: `HVACPulse is a single-binary service that records liveness heartbeats from
HVAC edge devices into the device_state table and serves the fleet state
back to operators.`,
		SilenceUsage: true,
	}

	// ── server subcommand ─────────────────────────────────────────────────────
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HVACPulse server (dual-port: 8787 control + 8788 data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SERVER")

			// optional .env for local development
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			log, err := logging.New(cfg.LogLevel, cfg.LogFormat, "hvacpulse-server")
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer log.Sync()

			server.SetLogger(log)
			if err := server.InitDB(cfg); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}

			// Inject security settings into server package globals.
			server.SetJWTSecret(cfg.JWTSecret)
			server.SetAgentToken(cfg.AgentToken)
			server.SetAdminCredentials(cfg.AdminUser, cfg.AdminPass, cfg.AdminPassHash)

			if len(cfg.KafkaBrokers) > 0 {
				publisher := server.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
				server.SetEventPublisher(publisher)
				defer publisher.Close()
				log.Info("heartbeat event stream enabled",
					zap.Strings("brokers", cfg.KafkaBrokers),
					zap.String("topic", cfg.KafkaTopic))
			}

			gin.SetMode(gin.ReleaseMode)

			// ── Control-plane engine (8787) ────────────────────────────────────
			ctrlEngine := gin.New()
			ctrlEngine.Use(
				server.RequestIDMiddleware(),
				server.RecoveryMiddleware(log),
				server.AccessLogMiddleware(log),
				server.CORSMiddleware(),
			)
			server.RegisterControlRoutes(ctrlEngine)

			// ── Data-plane engine (8788) ───────────────────────────────────────
			dataEngine := gin.New()
			dataEngine.Use(
				server.RequestIDMiddleware(),
				server.RecoveryMiddleware(log),
				server.AccessLogMiddleware(log),
				server.RateLimitMiddleware(cfg.IngestRateRPS, cfg.IngestRateBurst, log),
			)
			server.RegisterDataRoutes(dataEngine)

			ctrlAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ControlPort)
			dataAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.DataPort)

			fmt.Printf("  ✓ Control plane (operator API)     → http://%s\n", ctrlAddr)
			fmt.Printf("  ✓ Data    plane (device heartbeats) → http://%s\n", dataAddr)
			fmt.Printf("  ✓ Default login: %s / %s\n", cfg.AdminUser, cfg.AdminPass)
			fmt.Printf("  ✓ Agent token:   %s\n\n", cfg.AgentToken)

			// Run both servers concurrently; shut down gracefully on SIGINT/SIGTERM.
			ctrlSrv := &http.Server{Addr: ctrlAddr, Handler: ctrlEngine}
			dataSrv := &http.Server{Addr: dataAddr, Handler: dataEngine}

			errCh := make(chan error, 2)
			go func() { errCh <- ctrlSrv.ListenAndServe() }()
			go func() { errCh <- dataSrv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
				fmt.Println("\n  → Shutting down gracefully…")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ctrlSrv.Shutdown(ctx)
				_ = dataSrv.Shutdown(ctx)
				return nil
			}
		},
	}

	// ── probe subcommand ──────────────────────────────────────────────────────
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Start the HVACPulse probe on this device (heartbeat sender)",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("PROBE")

			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			// CLI flags override config values.
			if join, _ := cmd.Flags().GetString("join"); join != "" {
				if !containsPort(join) {
					join = fmt.Sprintf("%s:%d", join, cfg.DataPort)
				}
				cfg.ProbeJoinAddr = join
			}
			if token, _ := cmd.Flags().GetString("token"); token != "" {
				cfg.ProbeToken = token
			}
			if site, _ := cmd.Flags().GetString("site"); site != "" {
				cfg.ProbeSiteID = site
			}
			if device, _ := cmd.Flags().GetString("device"); device != "" {
				cfg.ProbeDeviceID = device
			}
			if status, _ := cmd.Flags().GetString("status"); status != "" {
				cfg.ProbeStatus = status
			}
			if interval, _ := cmd.Flags().GetInt("interval"); interval > 0 {
				cfg.ProbeInterval = interval
			}
			once, _ := cmd.Flags().GetBool("once")

			log, err := logging.New(cfg.LogLevel, cfg.LogFormat, "hvacpulse-probe")
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer log.Sync()

			fmt.Printf("  ✓ Joining server: %s\n", cfg.ProbeJoinAddr)
			fmt.Printf("  ✓ Site:           %s\n", cfg.ProbeSiteID)
			if once {
				fmt.Printf("  ✓ One-shot heartbeat\n\n")
			} else {
				fmt.Printf("  ✓ Report interval: %ds\n\n", cfg.ProbeInterval)
			}
			return probe.Run(cfg, log, once)
		},
	}
	probeCmd.Flags().String("join", "", "Data-plane address, e.g. 10.0.0.5 or 10.0.0.5:8788")
	probeCmd.Flags().String("token", "", "Pre-shared token for server authentication (overrides config)")
	probeCmd.Flags().String("site", "", "Site identifier reported in every heartbeat")
	probeCmd.Flags().String("device", "", "Device identifier (defaults to hostname)")
	probeCmd.Flags().String("status", "", "Reported status: ready, degraded or error")
	probeCmd.Flags().Int("interval", 0, "Heartbeat interval in seconds (overrides config)")
	probeCmd.Flags().Bool("once", false, "Send a single heartbeat and exit")

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print HVACPulse version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("HVACPulse %s  |  Author: vesaa\n", version)
		},
	}

	root.AddCommand(serverCmd, probeCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// containsPort checks whether addr already has a port suffix.
func containsPort(addr string) bool {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return true
		}
		if addr[i] == '/' {
			break
		}
	}
	return false
}
