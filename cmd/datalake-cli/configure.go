package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage credential profiles",
	Long: `Manage credential profiles in the profile file.

A profile holds the endpoint host tokens are signed for, an optional base URL
to send requests to, and an access/secret key pair. Select one with --profile
or DATALAKE_PROFILE.

Profiles are stored in ~/.datalake/config.yaml`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Long:  `List all profiles. The default profile is marked with an asterisk (*).`,
	Args:  cobra.NoArgs,
	RunE:  runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a profile",
	Long: `Add a profile interactively.

You will be prompted for:
  - Endpoint host (for example api.example.com)
  - Base URL (optional, defaults to https://<endpoint host>)
  - Access key
  - Secret key
  - Whether to make it the default`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var configureSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigureSetDefault,
}

var configureShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile",
	Long: `Show a profile, or the default profile when no name is given.
Secrets are masked unless --show-secrets is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureShow,
}

var showSecrets bool

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureAddCmd)
	configureCmd.AddCommand(configureRemoveCmd)
	configureCmd.AddCommand(configureSetDefaultCmd)
	configureCmd.AddCommand(configureShowCmd)

	configureShowCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configureListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
}

// errCancelled stops a configure command without reporting a failure.
var errCancelled = errors.New("cancelled")

// editConfig loads the profile file, applies fn and saves the result.
// A missing file starts out empty.
func editConfig(fn func(cfg *client.ConfigFile) error) error {
	path := getConfigPath()
	cfg, err := client.LoadOrEmptyConfigFile(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := fn(cfg); err != nil {
		if errors.Is(err, errCancelled) {
			fmt.Println("Cancelled.")
			return nil
		}
		return err
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func confirm(label string) bool {
	_, err := (&promptui.Prompt{Label: label, IsConfirm: true}).Run()
	return err == nil
}

func ask(label, def string, check func(string) error, mask rune) (string, error) {
	prompt := promptui.Prompt{Label: label, Default: def, Mask: mask}
	if check != nil {
		prompt.Validate = func(in string) error { return check(strings.TrimSpace(in)) }
	}
	v, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return "", errCancelled
		}
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// promptProfile asks for every field of the profile called name, offering
// the values of prev as defaults.
func promptProfile(name string, prev client.Profile) (client.Profile, error) {
	p := client.Profile{Name: name, Default: prev.Default}
	var err error
	if p.EndpointHost, err = ask("Endpoint Host", prev.EndpointHost, client.ValidateEndpointHost, 0); err != nil {
		return p, err
	}
	label := "Base URL (empty for https://" + p.EndpointHost + ")"
	if p.BaseURL, err = ask(label, prev.BaseURL, client.ValidateBaseURL, 0); err != nil {
		return p, err
	}
	p.BaseURL = strings.TrimSuffix(p.BaseURL, "/")
	if p.AccessKey, err = ask("Access Key", prev.AccessKey, nil, 0); err != nil {
		return p, err
	}
	if p.SecretKey, err = ask("Secret Key", "", nil, '*'); err != nil {
		return p, err
	}
	if p.SecretKey == "" {
		p.SecretKey = prev.SecretKey
	}
	return p, nil
}

func runConfigureList(_ *cobra.Command, _ []string) error {
	cfg, err := client.LoadOrEmptyConfigFile(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Profiles) == 0 {
		fmt.Println("No profiles configured. Run 'datalake-cli configure add <name>' to create one.")
		return nil
	}
	return getFormatter().FormatProfileList(os.Stdout, cfg.Profiles, cfg.DefaultProfileName(), showSecrets)
}

func runConfigureAdd(_ *cobra.Command, args []string) error {
	name := args[0]
	return editConfig(func(cfg *client.ConfigFile) error {
		var prev client.Profile
		if existing, err := cfg.GetProfile(name); err == nil {
			if !confirm(fmt.Sprintf("Profile '%s' already exists. Update it", name)) {
				return errCancelled
			}
			prev = *existing
		}

		p, err := promptProfile(name, prev)
		if err != nil {
			return err
		}
		// The first profile is always the default.
		p.Default = p.Default || len(cfg.Profiles) == 0 ||
			(cfg.DefaultProfileName() != name && confirm("Set as default profile"))

		created, err := cfg.Upsert(p)
		if err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		verb := "updated"
		if created {
			verb = "added"
		}
		fmt.Printf("Profile '%s' %s.\n", name, verb)
		if p.Default {
			fmt.Println("Set as default profile.")
		}
		return nil
	})
}

func runConfigureRemove(_ *cobra.Command, args []string) error {
	name := args[0]
	return editConfig(func(cfg *client.ConfigFile) error {
		if _, err := cfg.GetProfile(name); err != nil {
			return err
		}
		if !confirm(fmt.Sprintf("Remove profile '%s'", name)) {
			return errCancelled
		}
		if err := cfg.RemoveProfile(name); err != nil {
			return err
		}
		fmt.Printf("Profile '%s' removed.\n", name)
		return nil
	})
}

func runConfigureSetDefault(_ *cobra.Command, args []string) error {
	name := args[0]
	return editConfig(func(cfg *client.ConfigFile) error {
		if err := cfg.SetDefault(name); err != nil {
			return err
		}
		fmt.Printf("Default profile set to '%s'.\n", name)
		return nil
	})
}

func runConfigureShow(_ *cobra.Command, args []string) error {
	cfg, err := client.LoadConfigFile(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	p, err := cfg.GetProfile(name)
	if err != nil {
		return err
	}
	return getFormatter().FormatProfileShow(os.Stdout, *p, p.Name == cfg.DefaultProfileName(), showSecrets)
}
