package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/domain"
)

// PromptMode asks which mode to run and reads one answer from in.
func PromptMode(in io.Reader, out io.Writer, source string) (Mode, error) {
	fmt.Fprintf(out, "Ingest %s\n", source)
	fmt.Fprintln(out, "  1. Test (sample of 3 rows)")
	fmt.Fprintln(out, "  2. Full export")
	fmt.Fprint(out, "Choose an option (1/2): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read choice")
	}
	return ParseChoice(line)
}

// ParseChoice maps a menu answer or a mode name to a Mode.
func ParseChoice(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "test", "t":
		return ModeTest, nil
	case "2", "full", "f", "auto":
		return ModeFull, nil
	}
	return "", errors.Wrapf(domain.ErrInvalidInput, "invalid option %q", strings.TrimSpace(s))
}
