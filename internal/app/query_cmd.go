package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hitoshi/trainboard/internal/controller"
	"github.com/hitoshi/trainboard/internal/model"
	"github.com/hitoshi/trainboard/internal/trainapi"
)

const (
	msgTrainNumberRequired = "Please enter train number"
	msgFareFailed          = "Failed to get fare info"
	msgAvailabilityFailed  = "Failed to get seat availability"
)

func (c *cli) searchCommand() *cobra.Command {
	var (
		add  string
		swap bool
	)
	cmd := &cobra.Command{
		Use:   "search <from> <to>",
		Short: "Search trains between two stations",
		Example: `  trainboard search "New Delhi" "Mumbai Central"
  trainboard search Delhi Mumbai --add 12345`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var adder controller.FavoriteAdder
			if add != "" {
				fav, _, err := c.app.Favorites(ctx)
				if err != nil {
					return err
				}
				adder = fav
			}

			sc := controller.NewSearchController(c.app.QueryClient(), adder)
			sc.SetFrom(args[0])
			sc.SetTo(args[1])
			if swap {
				sc.Swap()
			}
			sc.Submit(ctx)

			state := sc.State()
			if add != "" && state.Phase == controller.PhaseSuccess {
				train, ok := findTrain(state.Trains, add)
				if !ok {
					return fmt.Errorf("train %s is not in the search results", add)
				}
				sc.AddToFavorites(ctx, train)
				state = sc.State()
			}

			if err := c.printer().print(state, func(w io.Writer) { renderSearch(w, state) }); err != nil {
				return err
			}
			return reportIf(state.Phase == controller.PhaseError || state.NoticeErr)
		},
	}
	cmd.Flags().StringVar(&add, "add", "", "add the train with this number from the results to favorites")
	cmd.Flags().BoolVar(&swap, "swap", false, "swap the from and to stations before searching")
	return cmd
}

func (c *cli) pnrCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "pnr <pnr-number>",
		Short:   "Check the booking status of a 10-digit PNR",
		Example: "  trainboard pnr 1234567890",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc := controller.NewPNRController(c.app.QueryClient())
			pc.SetPNR(args[0])
			pc.Submit(cmd.Context())

			state := pc.State()
			if err := c.printer().print(state, func(w io.Writer) { renderPNR(w, state) }); err != nil {
				return err
			}
			return reportIf(state.Phase == controller.PhaseError)
		},
	}
}

func (c *cli) liveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "live <train-number>",
		Short:   "Show the live running status of a train",
		Example: "  trainboard live 12951",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := controller.NewLiveStatusController(c.app.QueryClient())
			lc.SetTrainNumber(args[0])
			lc.Submit(cmd.Context())

			state := lc.State()
			if err := c.printer().print(state, func(w io.Writer) { renderLive(w, state) }); err != nil {
				return err
			}
			return reportIf(state.Phase == controller.PhaseError)
		},
	}
}

func (c *cli) fareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fare <train-number>",
		Short: "Show fares per class for a train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number := strings.TrimSpace(args[0])
			if number == "" {
				return c.printFailure(msgTrainNumberRequired)
			}
			fare, err := c.app.QueryClient().GetFareInfo(cmd.Context(), number)
			if err != nil {
				return c.printFailure(queryErrorMessage(err, msgFareFailed))
			}
			return c.printer().print(fare, func(w io.Writer) { renderFare(w, fare) })
		},
	}
}

func (c *cli) seatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seats <train-number>",
		Short: "Show seat availability per class for a train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number := strings.TrimSpace(args[0])
			if number == "" {
				return c.printFailure(msgTrainNumberRequired)
			}
			seats, err := c.app.QueryClient().GetSeatAvailability(cmd.Context(), number)
			if err != nil {
				return c.printFailure(queryErrorMessage(err, msgAvailabilityFailed))
			}
			return c.printer().print(seats, func(w io.Writer) { renderSeats(w, seats) })
		},
	}
}

// failureView は失敗時のJSON/YAML出力。
type failureView struct {
	Error string `json:"error" yaml:"error"`
}

func (c *cli) printFailure(msg string) error {
	if err := c.printer().print(failureView{Error: msg}, func(w io.Writer) { renderError(w, msg) }); err != nil {
		return err
	}
	return ErrReported
}

// queryErrorMessage は照会エラーを利用者向けメッセージに変換する。
// エラーペイロードはそのまま、通信失敗は汎用メッセージになる。
func queryErrorMessage(err error, fallback string) string {
	var svcErr *trainapi.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	var fetchErr *trainapi.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Message
	}
	return fallback
}

func findTrain(trains []model.TrainSummary, number string) (model.TrainSummary, bool) {
	for _, t := range trains {
		if t.Number == number {
			return t, true
		}
	}
	return model.TrainSummary{}, false
}
