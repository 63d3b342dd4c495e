package cmd

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/util"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	initMode        string
	initLiveURL     string
	initTopic       string
	initRequestURL  string
	initStaticPath  string
	initTimeout     string
	initListenAddr  string
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a riskguard config in the current directory",
	Long: "Create .riskguard/config.yaml. Values not given as flags are asked for\n" +
		"interactively unless --interactive=false is set, in which case defaults are used.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			defaultPath, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = defaultPath
		}

		if util.FileExists(path) && !initForce {
			return fmt.Errorf("riskguard is already initialized (%s); use --force to overwrite", path)
		}

		cfg := config.Default()
		cfg.ConfigPath = path

		flags := cmd.Flags()
		ask := func(name string) bool {
			return initInteractive && !flags.Changed(name)
		}

		if ask("mode") {
			mode, err := selectMode()
			if err != nil {
				return err
			}
			initMode = mode
		}
		cfg.Mode = initMode

		var err error
		switch cfg.Mode {
		case config.ModePush:
			if cfg.LiveURL, err = value(ask("live-url"), "Live websocket URL", initLiveURL, validateURL("ws", "wss")); err != nil {
				return err
			}
			if cfg.Topic, err = value(ask("topic"), "Topic", initTopic, nil); err != nil {
				return err
			}
			if cfg.RequestURL, err = value(ask("request-url"), "Upload URL", initRequestURL, validateURL("http", "https")); err != nil {
				return err
			}
		case config.ModePull:
			if cfg.RequestURL, err = value(ask("request-url"), "Snapshot URL", initRequestURL, validateURL("http", "https")); err != nil {
				return err
			}
		case config.ModeStatic:
			if cfg.StaticPath, err = value(ask("static-path"), "Snapshot file or URL", initStaticPath, nil); err != nil {
				return err
			}
		}
		cfg.RequestTimeout = initTimeout
		cfg.ListenAddr = initListenAddr

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.WriteConfig(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized riskguard in %s (%s mode)\n", filepath.Dir(path), cfg.Mode)
		return nil
	},
}

func selectMode() (string, error) {
	descriptions := map[string]string{
		config.ModePush:   "live updates over websocket, refresh uploads the current snapshot",
		config.ModePull:   "refresh fetches the latest snapshot over HTTP",
		config.ModeStatic: "read snapshots from a local file",
	}
	type option struct {
		Name        string
		Description string
	}
	options := make([]option, 0, len(config.Modes))
	for _, m := range config.Modes {
		options = append(options, option{Name: m, Description: descriptions[m]})
	}

	prompt := promptui.Select{
		Label: "Refresh mode",
		Items: options,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}:",
			Active:   "> {{ .Name | underline }} {{ .Description | faint }}",
			Inactive: "  {{ .Name }} {{ .Description | faint }}",
			Selected: "✔ {{ .Name }}",
		},
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return options[index].Name, nil
}

func value(interactive bool, label, current string, validate promptui.ValidateFunc) (string, error) {
	if !interactive {
		return current, nil
	}
	prompt := promptui.Prompt{
		Label:    label,
		Default:  current,
		Validate: validate,
	}
	result, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return result, nil
}

func validateURL(schemes ...string) promptui.ValidateFunc {
	return func(input string) error {
		u, err := url.Parse(input)
		if err != nil {
			return err
		}
		if u.Host == "" || !slices.Contains(schemes, u.Scheme) {
			return fmt.Errorf("expected a %v url", schemes)
		}
		return nil
	}
}

func init() {
	defaults := config.Default()
	flags := initCmd.Flags()
	flags.StringVar(&initMode, "mode", defaults.Mode, "refresh mode: push, pull or static")
	flags.StringVar(&initLiveURL, "live-url", defaults.LiveURL, "websocket endpoint for live updates")
	flags.StringVar(&initTopic, "topic", defaults.Topic, "topic to subscribe to")
	flags.StringVar(&initRequestURL, "request-url", defaults.RequestURL, "refresh/upload endpoint")
	flags.StringVar(&initStaticPath, "static-path", "", "snapshot file or URL for static mode")
	flags.StringVar(&initTimeout, "timeout", "", "refresh request timeout, e.g. 30s")
	flags.StringVar(&initListenAddr, "listen", defaults.ListenAddr, "address for 'riskguard serve'")
	flags.BoolVar(&initForce, "force", false, "overwrite an existing config")
	flags.BoolVar(&initInteractive, "interactive", true, "prompt for values not given as flags")
}
