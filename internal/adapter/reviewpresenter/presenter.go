package reviewpresenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/park285/cheese-review/pkg/reviewdto"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatPGN  Format = "pgn"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatPGN:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Presenter writes a review in one of the output formats.
type Presenter struct {
	formatter *Formatter
}

func NewPresenter(f *Formatter) *Presenter {
	if f == nil {
		f = NewFormatter(nil)
	}
	return &Presenter{formatter: f}
}

func (p *Presenter) Write(w io.Writer, r *reviewdto.Review, format Format) error {
	if r == nil {
		return fmt.Errorf("present review: nil review")
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatPGN:
		_, err := io.WriteString(w, p.formatter.PGN(r))
		return err
	case FormatText, "":
		text, err := p.formatter.Text(r)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text+"\n")
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
