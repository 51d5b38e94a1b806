package services

import (
	"fmt"
	"io"
	"strings"

	"olx-price-index/models"
	"olx-price-index/utils"
)

// InsightService prints a human-readable summary of a run.
type InsightService struct {
	out io.Writer
}

func NewInsightService(out io.Writer) *InsightService {
	return &InsightService{out: out}
}

func (s *InsightService) Print(r *models.RunReport) {
	sep := strings.Repeat("═", 64)
	thin := strings.Repeat("─", 64)

	fmt.Fprintf(s.out, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(s.out, "\033[1;35m  📊 OLX PRICE INDEX RUN\033[0m  %s\n", r.RunID)
	fmt.Fprintf(s.out, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(s.out, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(s.out, "  %s\n", thin)
	fmt.Fprintf(s.out, "  Products processed : \033[1m%d\033[0m\n", len(r.Results))
	fmt.Fprintf(s.out, "  Updated            : \033[1;32m%d\033[0m\n", r.Count(models.StateUpdated))
	fmt.Fprintf(s.out, "  Already done today : \033[1m%d\033[0m\n", r.Count(models.StateSkippedAlreadyDone))
	fmt.Fprintf(s.out, "  No listings        : \033[1;33m%d\033[0m\n", r.Count(models.StateSkippedNoData))
	fmt.Fprintf(s.out, "  Failed             : \033[1;31m%d\033[0m\n", r.Count(models.StateFailed))
	fmt.Fprintln(s.out)

	if len(r.Results) == 0 {
		fmt.Fprintf(s.out, "\033[1;35m%s\033[0m\n\n", sep)
		return
	}

	fmt.Fprintf(s.out, "\033[1;33m  Products\033[0m\n")
	fmt.Fprintf(s.out, "  %s\n", thin)
	for _, res := range r.Results {
		name := truncate(res.Product.Name, 28)
		switch res.State {
		case models.StateUpdated:
			fmt.Fprintf(s.out, "  %-30s \033[1;32m%-8s\033[0m %5d listings, median %s RON\n",
				name, "updated", res.Stats.Count, utils.FormatThousands(int(res.Stats.MedianPrice)))
		case models.StateFailed:
			fmt.Fprintf(s.out, "  %-30s \033[1;31m%-8s\033[0m %s\n", name, "failed", truncate(fmt.Sprint(res.Err), 60))
		case models.StateSkippedNoData:
			fmt.Fprintf(s.out, "  %-30s \033[1;33m%-8s\033[0m no listings found\n", name, "skipped")
		default:
			fmt.Fprintf(s.out, "  %-30s %-8s already updated today\n", name, "skipped")
		}
	}

	fmt.Fprintf(s.out, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
