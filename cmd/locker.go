package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/locker"
	"smart-locker-control/internal/service"
)

var lockerWait bool

var lockerCmd = &cobra.Command{
	Use:   "locker",
	Short: "Query or command the locker",
}

var lockerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current locker status",
	Run: func(cmd *cobra.Command, args []string) {
		withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
			printState(svc.Locker.ID(), svc.Locker.Status())
			return nil
		})
	},
}

func lockerActionCmd(action locker.Action) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: fmt.Sprintf("Send the %s command to the locker", action),
		Run: func(cmd *cobra.Command, args []string) {
			withServices(cmd.Context(), func(ctx context.Context, svc *service.Services) error {
				state, _, err := svc.Command(ctx, action, activity.Entry{User: cliUser})
				if err != nil {
					return err
				}
				printState(svc.Locker.ID(), state)

				// Without waiting the settle is cancelled on exit and recovered on next start.
				if !lockerWait {
					return nil
				}
				waitCtx, cancel := context.WithTimeout(ctx, svc.Config.Locker.SettleDelay+5*time.Second)
				defer cancel()
				state, err = svc.Locker.Wait(waitCtx)
				if err != nil {
					return err
				}
				printState(svc.Locker.ID(), state)
				return nil
			})
		},
	}
}

func printState(id string, s locker.State) {
	fmt.Printf("%s: %s (updated %s)\n", id, s.Status, s.LastUpdate.Local().Format(time.DateTime))
}

func init() {
	rootCmd.AddCommand(lockerCmd)
	lockerCmd.PersistentFlags().BoolVarP(&lockerWait, "wait", "w", true, "wait for the command to settle")
	lockerCmd.AddCommand(lockerStatusCmd, lockerActionCmd(locker.ActionOpen), lockerActionCmd(locker.ActionClose))
}
