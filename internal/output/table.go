package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/waabox/councildeck/internal/domain"
)

func WriteStatusTable(w io.Writer, status domain.AuthStatus) {
	state := "not connected"
	if status.Authenticated {
		state = "connected"
	}
	_, _ = fmt.Fprintf(w, "Copilot: %s\n", state)
	if len(status.AvailableModels) > 0 {
		_, _ = fmt.Fprintln(w)
		WriteModelTable(w, status.AvailableModels)
	}
}

func WriteProviderTable(w io.Writer, providers []domain.Provider) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tAVAILABLE\tMODELS")
	for _, p := range providers {
		models := "-"
		if len(p.Models) > 0 {
			models = strings.Join(p.Models, ",")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\n", p.Name, p.Available, models)
	}
	_ = tw.Flush()
}

func WriteModelTable(w io.Writer, models []domain.ModelDescriptor) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tPROVIDER\tNAME")
	for _, m := range models {
		provider := m.Provider
		if provider == "" {
			provider = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, provider, m.Name)
	}
	_ = tw.Flush()
}

// WriteCouncilTable prints list-valued keys one per row and everything else as-is.
// Keys are sorted so the output is stable.
func WriteCouncilTable(w io.Writer, cfg domain.CouncilConfig) {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KEY\tVALUE")
	for _, k := range keys {
		switch v := cfg[k].(type) {
		case []any:
			if len(v) == 0 {
				_, _ = fmt.Fprintf(tw, "%s\t-\n", k)
			}
			for i, item := range v {
				label := k
				if i > 0 {
					label = ""
				}
				_, _ = fmt.Fprintf(tw, "%s\t%v\n", label, item)
			}
		default:
			_, _ = fmt.Fprintf(tw, "%s\t%v\n", k, v)
		}
	}
	_ = tw.Flush()
}
