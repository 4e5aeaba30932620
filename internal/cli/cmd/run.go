package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/waypoint/internal/application/usecase"
	"github.com/bnema/waypoint/internal/cli"
	"github.com/bnema/waypoint/internal/cli/styles"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/infrastructure/config"
	"github.com/bnema/waypoint/internal/infrastructure/connectivity"
	"github.com/bnema/waypoint/internal/infrastructure/desktop"
	"github.com/bnema/waypoint/internal/infrastructure/device"
	"github.com/bnema/waypoint/internal/infrastructure/headless"
	"github.com/bnema/waypoint/internal/infrastructure/push"
	"github.com/bnema/waypoint/internal/infrastructure/remoteconfig"
	"github.com/bnema/waypoint/internal/infrastructure/runlock"
	"github.com/bnema/waypoint/internal/logging"
)

const (
	pushAsk     = "ask"
	pushAccept  = "accept"
	pushDecline = "decline"
)

var (
	runAttribution map[string]string
	runDeepLink    map[string]string
	runPush        string
	runOnce        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform a launch",
	Long: `Run the launch decision and keep the chosen experience alive.

Attribution and deep-link payloads are given as key=value pairs. Without an
attribution payload the decision waits for bootstrap.attribution_timeout and
then proceeds with an empty payload.

When the decision is the web container, a headless primary surface loads the
destination and stays up: pending overrides are loaded as they appear and the
cookie jar is persisted on exit. Connectivity is probed in the background.

Examples:
  waypoint run --attribution af_status=Non-organic,campaign=spring
  waypoint run --deeplink deep_link_value=promo --push decline
  waypoint run --once`,
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringToStringVar(&runAttribution, "attribution", nil, "attribution payload as key=value pairs")
	runCmd.Flags().StringToStringVar(&runDeepLink, "deeplink", nil, "deep-link payload as key=value pairs")
	runCmd.Flags().StringVar(&runPush, "push", pushAsk, "answer to the push prompt: ask, accept or decline")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "exit once the launch decision has been applied")
}

func runLaunch(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	switch runPush {
	case pushAsk, pushAccept, pushDecline:
	default:
		return fmt.Errorf("invalid --push %q: want ask, accept or decline", runPush)
	}

	stateDir, err := config.GetStateDir()
	if err != nil {
		return fmt.Errorf("resolve state dir: %w", err)
	}
	lock, err := runlock.Acquire(stateDir)
	if errors.Is(err, runlock.ErrHeld) {
		return errors.New("another waypoint run is active")
	}
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	closeLog, err := a.EnableFileLogging()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), a.Renderer.RenderError(err))
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(a.Ctx(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := newLauncher(a, cmd.OutOrStdout())
	return l.run(ctx)
}

// launcher owns the collaborators of one `waypoint run` session.
type launcher struct {
	app    *cli.App
	out    io.Writer
	cfg    *config.Config
	engine *usecase.BootstrapEngine
	inbox  *usecase.AttributionInbox
	mgr    *usecase.SurfaceManager
	probe  *connectivity.Monitor
}

func newLauncher(a *cli.App, out io.Writer) *launcher {
	cfg := a.Config
	ctx := a.Ctx()

	client := remoteconfig.New(remoteconfig.Config{
		Endpoint:            cfg.RemoteConfig.Endpoint,
		Timeout:             cfg.RemoteConfig.Timeout,
		VerificationBaseURL: cfg.Verification.BaseURL,
		VerificationTimeout: cfg.Verification.Timeout,
		DevKey:              cfg.Verification.DevKey,
		AppID:               cfg.App.AppID,
		UserAgent:           cfg.Surface.UserAgent,
	})

	engine := usecase.NewBootstrapEngine(usecase.BootstrapDeps{
		Store:        a.KV,
		RemoteConfig: client,
		Verifier:     client,
		Device: device.NewProvider(device.Config{
			BundleID:          cfg.App.BundleID,
			AppID:             cfg.App.AppID,
			FirebaseProjectID: cfg.App.FirebaseProjectID,
			Locale:            cfg.App.Locale,
			OS:                cfg.App.OS,
		}, a.KV),
		Push: push.NewConsole(pushPrompter(a.Theme, out), cfg.Bootstrap.AcceptPush || runPush == pushAccept, a.KV),
	}, bootstrapConfig(cfg))

	settings := entity.DefaultSurfaceSettings()
	settings.UserAgent = cfg.Surface.UserAgent
	factory := headless.NewFactory(headless.Options{
		UserAgent: cfg.Surface.UserAgent,
		Timeout:   cfg.Surface.RequestTimeout,
	})

	mgr := usecase.NewSurfaceManager(ctx, factory, usecase.NewCookieSyncUseCase(a.Cookies), desktop.NewOpener(), a.KV,
		usecase.SurfaceOptions{
			RedirectThreshold: cfg.Surface.RedirectThreshold,
			TrustPolicy:       entity.TrustPolicy(cfg.Surface.TrustPolicy),
			Settings:          settings,
		})

	return &launcher{
		app:    a,
		out:    out,
		cfg:    cfg,
		engine: engine,
		inbox:  usecase.NewAttributionInbox(),
		mgr:    mgr,
		probe: connectivity.NewMonitor(connectivity.Config{
			ProbeAddress: cfg.Connectivity.ProbeAddress,
			Interval:     cfg.Connectivity.Interval,
			Timeout:      cfg.Connectivity.Timeout,
		}, nil),
	}
}

func (l *launcher) run(parent context.Context) error {
	log := logging.FromContext(parent)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	l.watchConfig(ctx)

	events := make(chan usecase.BootstrapEvent, 16)
	l.engine.Subscribe(func(ev usecase.BootstrapEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})

	if len(runDeepLink) > 0 {
		l.inbox.PublishDeepLink(toPayload(runDeepLink))
	}
	if len(runAttribution) > 0 {
		l.inbox.PublishAttribution(toPayload(runAttribution))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.engine.Run(gctx, l.inbox)
	})
	g.Go(func() error {
		return l.probe.Run(gctx, func(status entity.ConnectivityStatus) {
			l.engine.HandleConnectivity(gctx, status)
		})
	})
	g.Go(func() error {
		return l.pollOverrides(gctx)
	})
	g.Go(func() error {
		return l.consume(gctx, events, cancel)
	})

	err := g.Wait()

	// Persist cookies with the uncancelled app context.
	l.mgr.Close(l.app.Ctx())
	l.engine.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Debug().Msg("launch session finished")
	return nil
}

// consume applies engine events. With --once it cancels the session after the
// first settled decision.
func (l *launcher) consume(ctx context.Context, events <-chan usecase.BootstrapEvent, done context.CancelFunc) error {
	log := logging.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev.Kind {
			case usecase.EventPhaseChanged:
				fmt.Fprintln(l.out, l.app.Renderer.RenderPhase(ev.State))
				settled := l.applyPhase(ctx, ev.State)
				if runOnce && settled {
					done()
				}
			case usecase.EventPushPromptRequested:
				if err := l.answerPrompt(ctx); err != nil {
					log.Warn().Err(err).Msg("push prompt answer rejected")
				}
			case usecase.EventPushPromptResolved:
				log.Debug().Msg("push prompt resolved")
			}
		}
	}
}

// applyPhase reports whether the phase is a settled launch decision.
func (l *launcher) applyPhase(ctx context.Context, state entity.PhaseState) bool {
	log := logging.FromContext(ctx)
	switch state.Phase {
	case entity.PhaseWebContainer:
		if l.mgr.Primary() != nil {
			return true
		}
		surface, err := l.mgr.CreatePrimary(ctx, state.Destination)
		if err != nil {
			log.Error().Err(err).Msg("failed to create primary surface")
			fmt.Fprintln(l.out, l.app.Renderer.RenderError(err))
			return true
		}
		if err := l.mgr.PersistCookies(ctx, surface.ID()); err != nil {
			log.Warn().Err(err).Msg("initial cookie snapshot failed")
		}
		fmt.Fprintln(l.out, l.app.Renderer.RenderSuccess("primary surface at "+logging.TruncateURL(surface.URI(), 96)))
		return true
	case entity.PhaseLegacyMode:
		return true
	default:
		return false
	}
}

func (l *launcher) answerPrompt(ctx context.Context) error {
	if runPush == pushDecline {
		return l.engine.DeclinePushPrompt(ctx)
	}
	return l.engine.AcceptPushPrompt(ctx)
}

func (l *launcher) pollOverrides(ctx context.Context) error {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(l.cfg.Surface.OverridePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if l.mgr.Primary() == nil {
			continue
		}
		uri, ok, err := l.mgr.ConsumeOverride(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("override not applied")
			continue
		}
		if ok {
			fmt.Fprintln(l.out, l.app.Renderer.RenderSuccess("override loaded: "+uri))
		}
	}
}

func (l *launcher) watchConfig(ctx context.Context) {
	log := logging.FromContext(ctx)
	mgr := l.app.ConfigManager
	mgr.OnConfigChange(func(cfg *config.Config) {
		l.engine.UpdateConfig(bootstrapConfig(cfg))
		log.Info().Msg("bootstrap timings reloaded")
	})
	if err := mgr.Watch(); err != nil {
		log.Warn().Err(err).Msg("config hot reload disabled")
	}
}

func bootstrapConfig(cfg *config.Config) usecase.BootstrapConfig {
	return usecase.BootstrapConfig{
		OrganicDebounce:    cfg.Bootstrap.OrganicDebounce,
		PushPromptCooldown: cfg.Bootstrap.PushPromptCooldown,
		AttributionTimeout: cfg.Bootstrap.AttributionTimeout,
		EnforceRouteExpiry: cfg.Bootstrap.EnforceRouteExpiry,
	}
}

// toPayload converts flag pairs. Literal true and false are decoded so flags
// such as is_first_launch=true arrive typed.
func toPayload(pairs map[string]string) entity.Payload {
	payload := make(entity.Payload, len(pairs))
	for k, v := range pairs {
		switch v {
		case "true", "false":
			payload[k] = v == "true"
		default:
			payload[k] = v
		}
	}
	return payload
}

// pushPrompter returns a terminal dialog when stdin is interactive and --push
// is ask. Otherwise the console answers its default.
func pushPrompter(theme *styles.Theme, out io.Writer) push.Prompter {
	if runPush != pushAsk {
		return nil
	}
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return nil
	}
	return styles.ConfirmPrompt{Theme: theme, In: os.Stdin, Out: out}
}
