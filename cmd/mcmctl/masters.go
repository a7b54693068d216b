package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcmlink/mcm/internal/config"
)

type masterEntry struct {
	Name    string         `json:"name"`
	Default bool           `json:"default"`
	Master  *config.Master `json:"master"`
}

func newMastersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "masters",
		Aliases: []string{"master"},
		Short:   "Manage registered masters",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered masters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := a.settings.registry
			def, _, _ := reg.Default()

			entries := make([]masterEntry, 0, len(reg.Masters))
			for _, name := range reg.Names() {
				entries = append(entries, masterEntry{Name: name, Default: name == def, Master: reg.GetMaster(name)})
			}
			if a.format == formatJSON {
				return a.emit(entries)
			}
			if len(entries) == 0 {
				a.out.Println("No masters registered. Add one with 'mcmctl masters add <name> <host>'.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				mark := ""
				if e.Default {
					mark = "*"
				}
				scheme := "ws"
				if e.Master.Secure {
					scheme = "wss"
				}
				seen := "never"
				if !e.Master.LastSeen.IsZero() {
					seen = e.Master.LastSeen.Local().Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{mark, e.Name, e.Master.Hostname, scheme,
					dash(e.Master.Model), dash(e.Master.FirmwareVersion), seen})
			}
			a.out.PrintTable([]string{"", "NAME", "HOST", "SCHEME", "MODEL", "FIRMWARE", "LAST SEEN"}, rows)
			return nil
		},
	}

	var secure bool
	var nickname string
	var makeDefault bool
	add := &cobra.Command{
		Use:   "add <name> <host>",
		Short: "Register a master under a name",
		Example: `  mcmctl masters add bench 192.168.4.1 --default
  mcmctl masters add lab mcm-lab.local --secure --nickname "Lab rack 2"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, host := args[0], args[1]
			if strings.ContainsAny(name, " \t") {
				return fmt.Errorf("master name %q must not contain spaces", name)
			}
			reg := a.settings.registry
			m := reg.SetMaster(name, host, secure)
			if cmd.Flags().Changed("nickname") {
				m.Nickname = nickname
			}
			if makeDefault || len(reg.Masters) == 1 {
				if err := reg.SetDefault(name); err != nil {
					return err
				}
			}
			if err := a.settings.save(); err != nil {
				return err
			}
			a.out.Printf("Registered %s (%s)\n", name, host)
			return nil
		},
	}
	add.Flags().BoolVar(&secure, "secure", false, "The master serves wss/https")
	add.Flags().StringVar(&nickname, "nickname", "", "Display name")
	add.Flags().BoolVar(&makeDefault, "default", false, "Make this the default master")

	remove := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Forget a registered master",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.settings.registry.RemoveMaster(args[0]) {
				return fmt.Errorf("no master named %q", args[0])
			}
			if err := a.settings.save(); err != nil {
				return err
			}
			a.out.Printf("Removed %s\n", args[0])
			return nil
		},
	}

	setDefault := &cobra.Command{
		Use:   "default <name>",
		Short: "Set the master used when --master is not given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.settings.registry.SetDefault(args[0]); err != nil {
				return err
			}
			if err := a.settings.save(); err != nil {
				return err
			}
			a.out.Printf("Default master is now %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, remove, setDefault)
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
