package main

import (
	"fmt"
	"sort"

	"github.com/sandevgo/convkeep/internal/domains"
	"github.com/sandevgo/convkeep/internal/service/ui"
	"github.com/spf13/cobra"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Manage the capture domain allowlist",
}

var domainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List allowlisted domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		list := rt.domains.List()
		names := make([]string, 0, len(list))
		for name := range list {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			cfg := list[name]
			state := "enabled"
			if !cfg.Enabled {
				state = ui.DescStyle.Render("disabled")
			}
			fmt.Printf("%-28s %-10s %s\n", name, cfg.Platform, state)
		}
		return nil
	},
}

var domainsAddPlatform string

var domainsAddCmd = &cobra.Command{
	Use:   "add <domain>",
	Short: "Add a domain to the allowlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		cfg := domains.DomainConfig{Enabled: true, Platform: domainsAddPlatform}
		if err := rt.domains.Add(ctx, args[0], cfg); err != nil {
			return err
		}
		fmt.Printf("Added %s\n", args[0])
		return nil
	},
}

var domainsRemoveCmd = &cobra.Command{
	Use:   "remove <domain>",
	Short: "Remove a domain from the allowlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.domains.Remove(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

var domainsEnableCmd = &cobra.Command{
	Use:   "enable <domain>",
	Short: "Enable capture for a domain",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setDomainEnabled(cmd, args[0], true) },
}

var domainsDisableCmd = &cobra.Command{
	Use:   "disable <domain>",
	Short: "Disable capture for a domain without removing it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setDomainEnabled(cmd, args[0], false) },
}

func setDomainEnabled(cmd *cobra.Command, domain string, enabled bool) error {
	ctx, flushLog := setupLogger(cmd.Context())
	defer flushLog()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.domains.SetEnabled(ctx, domain, enabled); err != nil {
		return err
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("%s %s\n", domain, state)
	return nil
}

func init() {
	domainsAddCmd.Flags().StringVar(&domainsAddPlatform, "platform", "", "platform label stored with the domain")
	domainsCmd.AddCommand(domainsListCmd, domainsAddCmd, domainsRemoveCmd, domainsEnableCmd, domainsDisableCmd)
	rootCmd.AddCommand(domainsCmd)
}
