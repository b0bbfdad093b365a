package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active session",
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()

		f := newFactory(obs)
		defer f.Close()

		d, err := f.Sessions().Active()
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to resolve session")
		}
		fmt.Printf("%s  (created %s, last active %s)\n",
			d.Name,
			d.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			d.LastActive.Local().Format("2006-01-02 15:04:05"))
	},
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a fresh session",
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()

		f := newFactory(obs)
		defer f.Close()

		d, err := f.Sessions().Switch()
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to create session")
		}
		fmt.Println(d.Name)
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past sessions",
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()

		f := newFactory(obs)
		defer f.Close()

		sessions, err := f.Sessions().List()
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to list sessions")
		}
		if len(sessions) == 0 {
			fmt.Println("(no sessions)")
			return
		}
		for _, d := range sessions {
			fmt.Printf("%s  last active %s\n", d.Name, d.LastActive.Local().Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	RootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionListCmd)
}
