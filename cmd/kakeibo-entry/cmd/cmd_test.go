package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kakeibo/internal/core"
	"kakeibo/internal/form"
	"kakeibo/internal/log"
)

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

type recordingSubmitter struct {
	batches []core.Batch
	resp    form.Response
	err     error
}

func (r *recordingSubmitter) Submit(_ context.Context, b core.Batch) (form.Response, error) {
	r.batches = append(r.batches, b)
	return r.resp, r.err
}

func runSession(t *testing.T, sub form.Submitter, opts core.Options, script string) (*Session, string) {
	t.Helper()
	var out bytes.Buffer
	sess := NewSession(sub, opts, strings.NewReader(script), &out, form.WithLogger(quietLogger()))
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return sess, out.String()
}

func TestSession_SubmitBatch(t *testing.T) {
	sub := &recordingSubmitter{resp: form.Response{StatusCode: http.StatusOK, Message: core.MsgAppended(2)}}
	opts := core.Options{
		StoreOptions:         []string{"スーパーA"},
		PaymentMethodOptions: []string{"現金", "クレジットカード"},
	}
	script := strings.Join([]string{
		"set 1 date 2024-05-01",
		"pick 1 store 1",
		"set 1 amount 1500",
		"pick 1 paymentMethod 2",
		"add",
		"set 2 date 2024-05-02",
		"set 2 store コンビニB",
		"set 2 amount 320",
		"set 2 paymentMethod 現金",
		"set 2 notes 昼食  と飲み物",
		"submit",
		"quit",
	}, "\n")

	sess, out := runSession(t, sub, opts, script)

	if len(sub.batches) != 1 {
		t.Fatalf("submits = %d, want 1", len(sub.batches))
	}
	batch := sub.batches[0]
	if len(batch) != 2 {
		t.Fatalf("batch len = %d, want 2", len(batch))
	}
	if batch[0].Store != "スーパーA" || batch[0].PaymentMethod != "クレジットカード" || !batch[0].Amount.Equal(core.AmountFromInt(1500)) {
		t.Errorf("first entry = %+v", batch[0])
	}
	if batch[1].Notes != "昼食  と飲み物" {
		t.Errorf("notes = %q, want inner spacing kept", batch[1].Notes)
	}
	if !strings.Contains(out, "成功: "+core.MsgAppended(2)) {
		t.Errorf("output missing success notice:\n%s", out)
	}
	rows := sess.Form().Entries()
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Errorf("form should reset to row 1, got %+v", rows)
	}
}

func TestSession_ValidationBlocksSubmit(t *testing.T) {
	sub := &recordingSubmitter{}
	_, out := runSession(t, sub, core.Options{}, "submit\nquit\n")

	if len(sub.batches) != 0 {
		t.Fatalf("submitter called %d times, want 0", len(sub.batches))
	}
	if !strings.Contains(out, "row 1: store is required") {
		t.Errorf("output missing validation error:\n%s", out)
	}
}

func TestSession_Commands(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"last row kept", "rm 1", "the last row cannot be removed"},
		{"unknown command", "frobnicate", `unknown command "frobnicate"`},
		{"bad id", "rm x", `invalid row id "x"`},
		{"missing row", "set 9 store A", form.ErrRowNotFound.Error()},
		{"unknown field", "set 1 colour red", form.ErrUnknownField.Error()},
		{"negative amount", "set 1 amount -5", "error:"},
		{"no suggestions for notes", "suggest notes", `no suggestions for "notes"`},
		{"suggestion out of range", "pick 1 store 3", `no suggestion "3"`},
		{"suggest lists options", "suggest store", "1) スーパーA"},
		{"add reports id", "add", "added row 2"},
		{"help", "help", "commands:"},
	}

	opts := core.Options{StoreOptions: []string{"スーパーA"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out := runSession(t, &recordingSubmitter{}, opts, tt.script+"\nquit\n")
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestSession_FailureKeepsRows(t *testing.T) {
	sub := &recordingSubmitter{resp: form.Response{
		StatusCode: http.StatusInternalServerError,
		Message:    core.MsgProcessingFailed,
		Error:      "boom",
	}}
	script := "set 1 store A\nset 1 amount 1\nset 1 paymentMethod 現金\nadd\nrm 1\nlist\nset 2 store B\nset 2 amount 2\nset 2 paymentMethod 現金\nsubmit\nquit\n"
	sess, out := runSession(t, sub, core.Options{}, script)

	if !strings.Contains(out, "エラー: "+core.MsgProcessingFailed+"\n\nboom") {
		t.Errorf("output missing failure notice:\n%s", out)
	}
	rows := sess.Form().Entries()
	if len(rows) != 1 || rows[0].ID != 2 || rows[0].Store != "B" {
		t.Errorf("rows should be kept, got %+v", rows)
	}
}

func TestSubmitRows(t *testing.T) {
	sub := &recordingSubmitter{resp: form.Response{StatusCode: http.StatusOK, Message: "ok"}}
	f := form.New(sub, form.WithLogger(quietLogger()))
	var out bytes.Buffer

	err := SubmitRows(context.Background(), f, []string{
		"2024-05-01,スーパーA,1500,現金",
		`2024-05-02, "コンビニB, 駅前",320,QRコード決済,昼食`,
	}, &out)
	if err != nil {
		t.Fatalf("SubmitRows: %v", err)
	}
	if len(sub.batches) != 1 || len(sub.batches[0]) != 2 {
		t.Fatalf("batches = %+v", sub.batches)
	}
	second := sub.batches[0][1]
	if second.Store != "コンビニB, 駅前" || second.Notes != "昼食" || second.Date != "2024-05-02" {
		t.Errorf("second entry = %+v", second)
	}
	if strings.TrimSpace(out.String()) != "成功: ok" {
		t.Errorf("output = %q", out.String())
	}
}

func TestSubmitRows_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rows    []string
		sub     *recordingSubmitter
		wantErr error
		wantMsg string
	}{
		{
			name:    "too few values",
			rows:    []string{"2024-05-01,A,1"},
			sub:     &recordingSubmitter{},
			wantMsg: "want 4 or 5 values, got 3",
		},
		{
			name:    "bad amount",
			rows:    []string{"2024-05-01,A,abc,現金"},
			sub:     &recordingSubmitter{},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "missing store",
			rows:    []string{"2024-05-01,,100,現金"},
			sub:     &recordingSubmitter{},
			wantMsg: "store is required",
		},
		{
			name:    "server failure",
			rows:    []string{"2024-05-01,A,100,現金"},
			sub:     &recordingSubmitter{resp: form.Response{StatusCode: http.StatusNotFound, Message: "missing"}},
			wantErr: ErrNotAppended,
		},
		{
			name:    "transport failure",
			rows:    []string{"2024-05-01,A,100,現金"},
			sub:     &recordingSubmitter{err: errors.New("connection refused")},
			wantErr: ErrNotAppended,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := form.New(tt.sub, form.WithLogger(quietLogger()))
			err := SubmitRows(context.Background(), f, tt.rows, io.Discard)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want containing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSubmitRows_EmptyDateKeepsToday(t *testing.T) {
	sub := &recordingSubmitter{resp: form.Response{StatusCode: http.StatusOK, Message: "ok"}}
	f := form.New(sub, form.WithLogger(quietLogger()))
	today := f.Entries()[0].Date

	if err := SubmitRows(context.Background(), f, []string{",A,100,現金"}, io.Discard); err != nil {
		t.Fatalf("SubmitRows: %v", err)
	}
	if got := sub.batches[0][0].Date; got != today {
		t.Errorf("date = %q, want %q", got, today)
	}
}

func TestOptionsCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/options" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"storeOptions":["八百屋"],"paymentMethodOptions":["現金"]}`))
	}))
	defer srv.Close()

	s := NewSettings(quietLogger())
	s.ServerURL = srv.URL
	c := OptionsCmd(s)
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs([]string{})
	if err := c.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("options: %v", err)
	}
	want := "store:\n  八百屋\npaymentMethod:\n  現金\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRestAfter(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"set 1 notes a  b", "a  b"},
		{"set  1   notes   spaced ", "spaced"},
		{"set 1 notes", ""},
		{"set 1 store notes", "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := restAfter(tt.line, strings.Fields(tt.line)[:3]); got != tt.want {
				t.Errorf("restAfter(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}
