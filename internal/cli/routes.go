package cli

import (
	"github.com/spf13/cobra"

	coretelegram "github.com/m3rciful/kilobot/core/telegram"
	"github.com/m3rciful/kilobot/core/telegram/router"
	"github.com/m3rciful/kilobot/internal/recipebot"
)

// NewRoutesCommand creates the routes command. It wires the bot offline
// and prints the route table without contacting Telegram.
func NewRoutesCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the wired route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bot, err := recipebot.New(recipebot.Deps{})
			if err != nil {
				return err
			}
			reg := coretelegram.NewRegistry()
			if err := reg.Wire(nil, bot.Components()...); err != nil {
				return err
			}
			return router.WriteTable(cmd.OutOrStdout(), reg)
		},
	}
}
