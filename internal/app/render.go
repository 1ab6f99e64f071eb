package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hitoshi/trainboard/internal/controller"
	"github.com/hitoshi/trainboard/internal/model"
)

// statusTag は表示クラスから装飾用のタグを作る。"status confirmed"は"[confirmed]"になる。
func statusTag(class string) string {
	modifier := strings.TrimSpace(strings.TrimPrefix(class, "status"))
	if modifier == "" {
		return ""
	}
	return " [" + modifier + "]"
}

func renderError(w io.Writer, msg string) {
	fmt.Fprintf(w, "Error: %s\n", msg)
}

func renderNotice(w io.Writer, notice string, isErr bool) {
	if notice == "" {
		return
	}
	if isErr {
		renderError(w, notice)
		return
	}
	fmt.Fprintln(w, notice)
}

func renderSearch(w io.Writer, s controller.SearchState) {
	if s.Phase == controller.PhaseError {
		renderError(w, s.Error)
		return
	}
	if len(s.Trains) == 0 {
		fmt.Fprintf(w, "No trains found from %s to %s\n", s.From, s.To)
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NUMBER\tNAME\tDEPARTURE\tARRIVAL\tDURATION\tROUTE")
		for _, t := range s.Trains {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s -> %s\n",
				t.Number, t.Name, t.Departure, t.Arrival, t.Duration, t.From, t.To)
		}
		tw.Flush()
	}
	renderNotice(w, s.Notice, s.NoticeErr)
}

func renderPNR(w io.Writer, s controller.PNRState) {
	if s.Phase == controller.PhaseError {
		renderError(w, s.Error)
		return
	}
	r := s.Result
	if r == nil {
		return
	}
	fmt.Fprintf(w, "%s (%s)\n", r.TrainName, r.TrainNumber)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "  PNR:\t%s\n", r.PNR)
	fmt.Fprintf(tw, "  Date:\t%s\n", r.Date)
	fmt.Fprintf(tw, "  Route:\t%s -> %s\n", r.From, r.To)
	fmt.Fprintf(tw, "  Class:\t%s\n", r.Class)
	fmt.Fprintf(tw, "  Status:\t%s%s\n", r.Status, statusTag(s.StatusClass()))
	if r.Seat != nil {
		fmt.Fprintf(tw, "  Seat:\t%s\n", *r.Seat)
	}
	tw.Flush()
}

func renderLive(w io.Writer, s controller.LiveStatusState) {
	if s.Phase == controller.PhaseError {
		renderError(w, s.Error)
		return
	}
	r := s.Result
	if r == nil {
		return
	}
	fmt.Fprintf(w, "%s (%s)\n", r.TrainName, r.TrainNumber)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "  Status:\t%s%s\n", r.Status, statusTag(s.StatusClass()))
	fmt.Fprintf(tw, "  Current station:\t%s\n", r.CurrentStation)
	fmt.Fprintf(tw, "  Next station:\t%s\n", r.NextStation)
	fmt.Fprintf(tw, "  Scheduled arrival:\t%s\n", r.ScheduledArrival)
	fmt.Fprintf(tw, "  Expected arrival:\t%s\n", r.ExpectedArrival)
	fmt.Fprintf(tw, "  Last updated:\t%s\n", r.LastUpdated)
	tw.Flush()
}

func renderFavorites(w io.Writer, s controller.FavoritesState) {
	renderNotice(w, s.Notice, s.NoticeErr)
	if !s.SignedIn {
		fmt.Fprintln(w, s.Message())
		return
	}
	if len(s.Favorites) == 0 {
		fmt.Fprintln(w, "No favorites yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tNAME\tROUTE\tADDED")
	for _, f := range s.Favorites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s -> %s\t%s\n",
			f.ID, f.TrainNumber, f.TrainName, f.From, f.To, f.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func renderFare(w io.Writer, f *model.FareInfo) {
	fmt.Fprintf(w, "Fares for train %s (%s)\n", f.TrainNumber, f.Currency)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, class := range sortedKeys(f.Fares) {
		fmt.Fprintf(tw, "  %s\t%d\n", class, f.Fares[class])
	}
	tw.Flush()
}

func renderSeats(w io.Writer, s *model.SeatAvailability) {
	fmt.Fprintf(w, "Seat availability for train %s on %s\n", s.TrainNumber, s.Date)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  CLASS\tAVAILABLE\tWAITING")
	for _, class := range sortedKeys(s.Availability) {
		a := s.Availability[class]
		fmt.Fprintf(tw, "  %s\t%d\t%d\n", class, a.Available, a.Waiting)
	}
	tw.Flush()
}

// identityView はwhoamiの出力形式。
type identityView struct {
	SignedIn bool            `json:"signed_in" yaml:"signed_in"`
	Greeting string          `json:"greeting,omitempty" yaml:"greeting,omitempty"`
	Identity *model.Identity `json:"identity,omitempty" yaml:"identity,omitempty"`
}

func newIdentityView(id *model.Identity) identityView {
	if id == nil {
		return identityView{}
	}
	return identityView{SignedIn: true, Greeting: "Hello, " + id.Greeting(), Identity: id}
}

func renderIdentity(w io.Writer, v identityView) {
	if !v.SignedIn {
		fmt.Fprintln(w, "Not logged in")
		return
	}
	fmt.Fprintln(w, v.Greeting)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
