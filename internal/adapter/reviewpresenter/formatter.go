package reviewpresenter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/park285/cheese-review/internal/chess/position"
	"github.com/park285/cheese-review/internal/msgcat"
	"github.com/park285/cheese-review/pkg/reviewdto"
)

// sevenTagRoster is the PGN tag order that precedes all other tags.
var sevenTagRoster = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

// Formatter renders review DTOs as a text report or an annotated PGN.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.MustDefault()
	}
	return &Formatter{cat: cat}
}

// Text is the human readable report: players, opening, summary, then one
// line per ply with the engine suggestion under non-best moves.
func (f *Formatter) Text(r *reviewdto.Review) (string, error) {
	if r == nil {
		return "", fmt.Errorf("format report: nil review")
	}
	var sb strings.Builder
	white, black := playerName(r.Tags, "White"), playerName(r.Tags, "Black")
	sb.WriteString(fmt.Sprintf("%s vs %s", white, black))
	if res := r.Tags["Result"]; res != "" {
		sb.WriteString(" (" + res + ")")
	}
	sb.WriteString("\n")

	if r.Opening != "" {
		line, err := f.cat.Render("report.opening", map[string]any{"Opening": r.Opening})
		if err != nil {
			return "", err
		}
		sb.WriteString(line + "\n")
	}
	summary, err := f.cat.Render("report.summary", map[string]any{
		"WhiteAccuracy": fmt.Sprintf("%.1f%%", r.White.Accuracy),
		"BlackAccuracy": fmt.Sprintf("%.1f%%", r.Black.Accuracy),
		"WhiteACPL":     fmt.Sprintf("%.1f", r.White.ACPL),
		"BlackACPL":     fmt.Sprintf("%.1f", r.Black.ACPL),
		"WhiteElo":      r.White.Elo,
		"BlackElo":      r.Black.Elo,
	})
	if err != nil {
		return "", err
	}
	sb.WriteString(summary + "\n\n")

	for _, m := range r.Moves {
		sb.WriteString(fmt.Sprintf("%s %-8s %-18s %7s", moveNumber(m), m.SAN, labelText(m), m.Eval))
		if m.Text != "" {
			sb.WriteString("  " + m.Text)
		}
		sb.WriteString("\n")
		if m.BestSAN == "" || m.BestSAN == m.SAN || m.Label == "book" || m.Label == "best" {
			continue
		}
		best, err := f.cat.Render("report.best_alternative", map[string]any{"Move": m.BestSAN})
		if err != nil {
			return "", err
		}
		sb.WriteString("    " + best)
		if m.BestText != "" {
			sb.WriteString(" " + m.BestText)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// PGN exports the game with NAGs and "{ [%eval x] label: text }" comments.
func (f *Formatter) PGN(r *reviewdto.Review) string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	result := r.Tags["Result"]
	if result == "" {
		result = "*"
	}
	writeTag := func(k, v string) {
		sb.WriteString(fmt.Sprintf("[%s \"%s\"]\n", k, strings.ReplaceAll(v, `"`, `\"`)))
	}
	for _, k := range sevenTagRoster {
		v := r.Tags[k]
		switch {
		case k == "Result":
			v = result
		case v == "":
			v = "?"
		}
		writeTag(k, v)
	}
	extra := make([]string, 0, len(r.Tags))
	for k := range r.Tags {
		if !inRoster(k) && k != "FEN" && k != "SetUp" {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		writeTag(k, r.Tags[k])
	}
	if r.StartFEN != "" && r.StartFEN != position.Start().FEN() {
		writeTag("SetUp", "1")
		writeTag("FEN", r.StartFEN)
	}
	sb.WriteString("\n")

	// Every move carries a comment, so Black moves always repeat the number.
	var body []string
	for _, m := range r.Moves {
		body = append(body, moveNumber(m))
		body = append(body, m.SAN)
		if m.NAG != "" {
			body = append(body, m.NAG)
		}
		body = append(body, pgnComment(m))
	}
	body = append(body, result)
	sb.WriteString(wrap(body, 80))
	sb.WriteString("\n")
	return sb.String()
}

func pgnComment(m reviewdto.Move) string {
	eval := strings.TrimPrefix(m.Eval, "+")
	text := strings.NewReplacer("{", "(", "}", ")").Replace(m.Text)
	label := labelText(m)
	if text == "" {
		return fmt.Sprintf("{ [%%eval %s] %s }", eval, label)
	}
	return fmt.Sprintf("{ [%%eval %s] %s: %s }", eval, label, text)
}

func labelText(m reviewdto.Move) string {
	label := strings.ReplaceAll(m.Label, "_", " ")
	if m.MateIn > 0 {
		return fmt.Sprintf("%s %d", label, m.MateIn)
	}
	return label
}

func moveNumber(m reviewdto.Move) string {
	if m.Side == "black" {
		return fmt.Sprintf("%d...", m.MoveNumber)
	}
	return fmt.Sprintf("%d.", m.MoveNumber)
}

func playerName(tags map[string]string, key string) string {
	if v := strings.TrimSpace(tags[key]); v != "" && v != "?" {
		return v
	}
	return key
}

func inRoster(k string) bool {
	for _, r := range sevenTagRoster {
		if r == k {
			return true
		}
	}
	return false
}

// wrap joins tokens with spaces and breaks lines before width. Comments are
// kept whole even when longer than width.
func wrap(tokens []string, width int) string {
	var sb strings.Builder
	lineLen := 0
	for _, tok := range tokens {
		if lineLen > 0 && lineLen+1+len(tok) > width {
			sb.WriteString("\n")
			lineLen = 0
		}
		if lineLen > 0 {
			sb.WriteString(" ")
			lineLen++
		}
		sb.WriteString(tok)
		lineLen += len(tok)
	}
	return sb.String()
}
