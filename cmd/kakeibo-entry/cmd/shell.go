package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/form"
)

func ShellCmd(s *Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Edit rows interactively and submit them as one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := s.options(ctx)
			sess := NewSession(s.submitter(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), form.WithLogger(s.Logger))
			return sess.Run(ctx)
		},
	}
}

// Session drives a form from line commands.
type Session struct {
	form        *form.Form
	suggestions map[form.Field]*form.Suggestions
	in          *bufio.Scanner
	out         io.Writer
}

func NewSession(sub form.Submitter, opts core.Options, in io.Reader, out io.Writer, formOpts ...form.Option) *Session {
	s := &Session{
		suggestions: map[form.Field]*form.Suggestions{
			form.FieldStore:         form.NewSuggestions(opts.StoreOptions),
			form.FieldPaymentMethod: form.NewSuggestions(opts.PaymentMethodOptions),
		},
		in:  bufio.NewScanner(in),
		out: out,
	}
	formOpts = append(formOpts, form.WithNotifier(form.NotifierFunc(func(o form.Outcome) {
		fmt.Fprintln(s.out, o.Text())
	})))
	s.form = form.New(sub, formOpts...)
	return s
}

// Form exposes the underlying state.
func (s *Session) Form() *form.Form { return s.form }

const shellHelp = `commands:
  list                          show rows
  add                           append a row dated today
  rm <id>                       remove a row
  set <id> <field> [value...]   edit a field (date store amount paymentMethod notes)
  suggest <field>               list suggestions for store or paymentMethod
  pick <id> <field> <n>         fill a field with suggestion n
  submit                        send all rows
  quit                          leave without sending`

// Run reads commands until quit or end of input.
func (s *Session) Run(ctx context.Context) error {
	s.list()
	for {
		fmt.Fprint(s.out, "> ")
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		quit, err := s.exec(ctx, line)
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
		if quit {
			return nil
		}
	}
}

func (s *Session) exec(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	switch args[0] {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "list", "ls":
		s.list()
	case "add":
		d, err := s.form.AddRow()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "added row %d\n", d.ID)
	case "rm":
		if len(args) != 2 {
			return false, errors.New("usage: rm <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return false, err
		}
		removed, err := s.form.RemoveRow(id)
		if err != nil {
			return false, err
		}
		if !removed {
			fmt.Fprintln(s.out, "the last row cannot be removed")
		}
	case "set":
		if len(args) < 3 {
			return false, errors.New("usage: set <id> <field> [value...]")
		}
		id, err := parseID(args[1])
		if err != nil {
			return false, err
		}
		return false, s.form.EditField(id, form.Field(args[2]), restAfter(line, args[:3]))
	case "suggest":
		if len(args) != 2 {
			return false, errors.New("usage: suggest <field>")
		}
		sg, err := s.suggestionsFor(args[1])
		if err != nil {
			return false, err
		}
		sg.Focus()
		for i, opt := range sg.Options() {
			fmt.Fprintf(s.out, "  %d) %s\n", i+1, opt)
		}
		sg.Blur()
	case "pick":
		if len(args) != 4 {
			return false, errors.New("usage: pick <id> <field> <n>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return false, err
		}
		sg, err := s.suggestionsFor(args[2])
		if err != nil {
			return false, err
		}
		n, err := strconv.Atoi(args[3])
		opts := sg.Options()
		if err != nil || n < 1 || n > len(opts) {
			return false, fmt.Errorf("no suggestion %q", args[3])
		}
		return false, sg.Select(s.form, id, form.Field(args[2]), opts[n-1])
	case "submit":
		fmt.Fprintln(s.out, "送信中...")
		if _, err := s.form.Submit(ctx); err != nil {
			var verr *form.ValidationError
			if errors.As(err, &verr) {
				return false, fmt.Errorf("row %d: %s is required", verr.RowID, verr.Field)
			}
			return false, err
		}
		s.list()
	default:
		return false, fmt.Errorf("unknown command %q (try help)", args[0])
	}
	return false, nil
}

func (s *Session) suggestionsFor(field string) (*form.Suggestions, error) {
	sg, ok := s.suggestions[form.Field(field)]
	if !ok {
		return nil, fmt.Errorf("no suggestions for %q", field)
	}
	return sg, nil
}

func (s *Session) list() {
	for _, d := range s.form.Entries() {
		vals := make([]string, 0, len(form.Fields))
		for _, f := range form.Fields {
			vals = append(vals, d.Value(f))
		}
		fmt.Fprintf(s.out, "[%d] %s\n", d.ID, strings.Join(vals, " | "))
	}
}

// restAfter drops the leading tokens from line, keeping the inner spacing
// of what remains.
func restAfter(line string, tokens []string) string {
	rest := line
	for _, tok := range tokens {
		rest = strings.TrimSpace(rest)[len(tok):]
	}
	return strings.TrimSpace(rest)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid row id %q", raw)
	}
	return id, nil
}
