package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagehound/pagehound/internal/crawler"
)

func TestLedgerRecordsReports(t *testing.T) {
	t.Parallel()

	l := New()
	ctx := context.Background()

	require.NoError(t, l.ReportProgress(ctx, "job-1", crawler.JobCounters{PagesCrawled: 1}))
	require.NoError(t, l.ReportProgress(ctx, "job-1", crawler.JobCounters{PagesCrawled: 2}))
	require.NoError(t, l.ReportTerminal(ctx, "job-1", crawler.JobStatusCompleted, crawler.JobSummary{
		Counters: crawler.JobCounters{PagesCrawled: 2},
	}))

	progress := l.Progress()
	require.Len(t, progress, 2)
	require.Equal(t, 2, progress[1].Counters.PagesCrawled)

	terminals := l.Terminals()
	require.Len(t, terminals, 1)
	require.Equal(t, crawler.JobStatusCompleted, terminals[0].Status)
}
