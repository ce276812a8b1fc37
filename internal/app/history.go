package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// History prints the most recent entries of the alert audit log.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show alert history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts recorded")
		return nil
	}

	total, err := store.CountAlerts(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Sent (UTC)\tRecipient\tGames\tFailed\tChannels\tSubject")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%d\t%s\t%s\n",
			alert.SentAt.UTC().Format(time.RFC3339),
			alert.Recipient,
			alert.GamesInRange,
			alert.FailedURLs,
			strings.Join(alert.Channels, ","),
			sanitizeInline(alert.Subject),
		)
	}

	writer.Flush()
	fmt.Fprintf(os.Stdout, "showing %d of %d recorded alerts\n", len(alerts), total)
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
