package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/renderlink/adapter"
	"github.com/pithecene-io/renderlink/adapter/redis"
	"github.com/pithecene-io/renderlink/adapter/webhook"
	"github.com/pithecene-io/renderlink/config"
	"github.com/pithecene-io/renderlink/exporter"
	"github.com/pithecene-io/renderlink/heartbeat"
	"github.com/pithecene-io/renderlink/log"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
)

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "address",
			Usage: "renderer server address",
			Value: config.DefaultAddress,
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "renderer server port",
			Value: config.DefaultPort,
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML settings file",
		},
	}
}

// loadSettings builds settings from the optional config file and flags.
// Flags override file values.
func loadSettings(c *cli.Context) (*config.Settings, error) {
	settings := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	if c.IsSet("address") || settings.Server.Address == "" {
		settings.Server.Address = c.String("address")
	}
	if c.IsSet("port") || settings.Server.Port == 0 {
		settings.Server.Port = c.Int("port")
	}
	return settings, nil
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Probe whether a renderer server is reachable",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			settings, err := loadSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			endpoint := settings.Server.Endpoint()

			logger := log.NewNop()
			monitor := heartbeat.NewMonitor(logger)
			if !monitor.Start(endpoint) {
				fmt.Printf("%s %s\n", errStyle.Render("unreachable"), labelStyle.Render(endpoint))
				return cli.Exit("", 1)
			}
			monitor.Stop()

			fmt.Printf("%s %s\n", okStyle.Render("ok"), labelStyle.Render(endpoint))
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	flags := append(serverFlags(),
		&cli.StringFlag{
			Name:     "out",
			Usage:    "scene file path to export to",
			Required: true,
		},
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Connect to a renderer and export the scene to a file",
		Flags: flags,
		Action: func(c *cli.Context) error {
			settings, err := loadSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			opts := []exporter.Option{}
			events, err := buildAdapter(settings.Adapter)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if events != nil {
				defer func() { _ = events.Close() }()
				opts = append(opts, exporter.WithAdapter(events))
			}

			exp := exporter.New(settings, opts...)
			exp.Init()
			if !exp.Connected() {
				fmt.Printf("%s %s\n", errStyle.Render("unreachable"), labelStyle.Render(settings.Server.Endpoint()))
				return cli.Exit("", 1)
			}

			exp.ExportScene(c.String("out"))
			exp.Close()

			snap := exp.Metrics()
			fmt.Printf("%s %s\n", okStyle.Render("exported"), labelStyle.Render(c.String("out")))
			fmt.Printf("%s %d sent, %d received\n",
				labelStyle.Render("messages:"), snap.MessagesSent, snap.MessagesReceived)
			return nil
		},
	}
}

// buildAdapter constructs the configured session-event adapter, or nil
// when none is configured.
func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	retries := webhook.DefaultRetries
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}

	switch cfg.Type {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", cfg.Type)
	}
}
