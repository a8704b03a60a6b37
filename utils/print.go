package utils

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/seanrmurphy/tgdigest/digest"
	"github.com/seanrmurphy/tgdigest/store"
)

// previewLength is the number of runes of a summary or message shown in a
// table cell.
const previewLength = 60

// NewSpinner returns the spinner used for long running steps.
func NewSpinner() *pterm.SpinnerPrinter {
	blueNormalStyle := pterm.NewStyle(pterm.FgBlue)
	blueBoldStyle := pterm.NewStyle(pterm.FgBlue, pterm.Bold)
	greenStyle := pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	yellowStyle := pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	info := pterm.PrefixPrinter{
		MessageStyle: blueNormalStyle,
		Prefix: pterm.Prefix{
			Style: yellowStyle,
			Text:  "🛈",
		},
	}
	success := pterm.PrefixPrinter{
		MessageStyle: blueBoldStyle,
		Prefix: pterm.Prefix{
			Style: greenStyle,
			Text:  "✔",
		},
	}

	spinner := pterm.DefaultSpinner
	spinner.InfoPrinter = &info
	spinner.SuccessPrinter = &success
	return &spinner
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	return string([]rune(s)[:previewLength-1]) + "…"
}

// DigestRows builds the table of stored digests, header first.
func DigestRows(digests []store.Digest) pterm.TableData {
	rows := pterm.TableData{{"ID", "Created", "Backend", "Channels", "Messages", "Delivered", "Summary"}}
	for _, d := range digests {
		delivered := "no"
		if d.Delivered {
			delivered = "yes"
		}
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			humanize.Time(d.CreatedAt),
			d.Backend,
			strconv.Itoa(d.Channels),
			strconv.Itoa(d.Messages),
			delivered,
			preview(d.Summary),
		})
	}
	return rows
}

// PrintDigests prints digests as a table.
func PrintDigests(digests []store.Digest) error {
	if len(digests) == 0 {
		pterm.Info.Println("No digests yet")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(DigestRows(digests)).Render()
}

// MessageRows builds the table of fetched messages, header first.
func MessageRows(msgs []digest.SourceMessage) pterm.TableData {
	rows := pterm.TableData{{"Channel", "ID", "Date", "Message"}}
	for _, m := range msgs {
		rows = append(rows, []string{
			m.ChannelTitle,
			strconv.FormatInt(m.MessageID, 10),
			humanize.Time(m.Date),
			preview(m.Content),
		})
	}
	return rows
}

// PrintMessages prints fetched messages as a table.
func PrintMessages(msgs []digest.SourceMessage) error {
	if len(msgs) == 0 {
		pterm.Info.Println("No unread messages")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(MessageRows(msgs)).Render()
}

// PrintResult summarizes a digest run.
func PrintResult(res *digest.Result, dryRun bool) {
	pterm.Info.Println(fmt.Sprintf("Fetched %d messages, %d new", res.Fetched, res.New))
	if res.Digest == "" {
		pterm.Info.Println("Nothing to summarize")
		return
	}
	if dryRun {
		pterm.DefaultBox.WithTitle("Digest (dry run)").Println(res.Digest)
		return
	}
	if res.Delivered {
		pterm.Success.Println(fmt.Sprintf("Digest #%d delivered in %d message(s)", res.DigestID, res.Chunks))
	}
	if res.MarkAsReadErr != nil {
		pterm.Warning.Println(fmt.Sprintf("Some chats were not marked as read: %v", res.MarkAsReadErr))
	}
}
