package app

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hitoshi/trainboard/internal/controller"
	"github.com/hitoshi/trainboard/internal/model"
)

const (
	msgFavoriteAdded     = "Train added to favorites!"
	msgRemoveLoginNeeded = "Please login to view your favorites"
)

func (c *cli) favoritesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite trains of the signed-in user",
	}
	cmd.AddCommand(c.favoritesListCommand(), c.favoritesAddCommand(), c.favoritesRemoveCommand())
	return cmd
}

func (c *cli) favoritesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List favorite trains, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fav, store, err := c.app.Favorites(ctx)
			if err != nil {
				return err
			}

			fc := controller.NewFavoritesController(store, fav)
			stop := fc.Start(ctx)
			defer stop()

			state := fc.State()
			return c.printer().print(state, func(w io.Writer) { renderFavorites(w, state) })
		},
	}
}

func (c *cli) favoritesAddCommand() *cobra.Command {
	var train model.TrainSummary
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a train to favorites",
		Example: `  trainboard favorites add --number 12951 --name "Mumbai Rajdhani" --from "New Delhi" --to "Mumbai Central"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fav, _, err := c.app.Favorites(ctx)
			if err != nil {
				return err
			}
			if err := fav.Add(ctx, train); err != nil {
				return c.printFailure(err.Error())
			}
			return c.printer().print(map[string]string{"notice": msgFavoriteAdded}, func(w io.Writer) {
				io.WriteString(w, msgFavoriteAdded+"\n")
			})
		},
	}
	cmd.Flags().StringVar(&train.Number, "number", "", "train number")
	cmd.Flags().StringVar(&train.Name, "name", "", "train name")
	cmd.Flags().StringVar(&train.From, "from", "", "from station")
	cmd.Flags().StringVar(&train.To, "to", "", "to station")
	cmd.MarkFlagRequired("number")
	return cmd
}

func (c *cli) favoritesRemoveCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove <favorite-id>",
		Short: "Remove a favorite train and show the updated list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fav, store, err := c.app.Favorites(ctx)
			if err != nil {
				return err
			}
			if store.Current() == nil {
				return c.printFailure(msgRemoveLoginNeeded)
			}

			if !yes {
				answer, err := c.readLine("Remove this train from favorites? [y/N]: ")
				if err != nil {
					return err
				}
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					io.WriteString(c.opts.Stderr, "Cancelled\n")
					return nil
				}
			}

			fc := controller.NewFavoritesController(store, fav)
			stop := fc.Start(ctx)
			defer stop()
			fc.Remove(ctx, args[0])

			state := fc.State()
			if err := c.printer().print(state, func(w io.Writer) { renderFavorites(w, state) }); err != nil {
				return err
			}
			return reportIf(state.NoticeErr)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "remove without asking for confirmation")
	return cmd
}
