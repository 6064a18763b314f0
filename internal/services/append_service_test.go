package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"kakeibo/internal/config"
	"kakeibo/internal/core"
	"kakeibo/internal/docstore"
	"kakeibo/internal/docstore/memory"
	"kakeibo/internal/log"
	"kakeibo/internal/workbook"
)

const testPath = "/kakeibo.xlsx"

func testLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func fullConn() config.Connection {
	return config.Connection{URL: "https://dav.example.com", Username: "u", Password: "p", Path: testPath}
}

func entry(date, store string, amount int64, method, notes string) core.Entry {
	return core.Entry{Date: date, Store: store, Amount: core.AmountFromInt(amount), PaymentMethod: method, Notes: notes}
}

func seedRows(n int) [][]any {
	rows := make([][]any, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, []any{fmt.Sprintf("2023-12-%02d", i), "Shop", int64(i * 10), "Cash", ""})
	}
	return rows
}

func seededStore(t *testing.T, rows int) *memory.Store {
	t.Helper()
	data, err := workbook.New("家計簿", seedRows(rows))
	if err != nil {
		t.Fatalf("workbook.New: %v", err)
	}
	s := memory.New()
	s.Put(testPath, data)
	return s
}

func readRows(t *testing.T, s *memory.Store) [][]string {
	t.Helper()
	data, ok := s.Get(testPath)
	if !ok {
		t.Fatalf("document %s missing", testPath)
	}
	wb, err := workbook.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	defer wb.Close()
	sheet, err := wb.FirstSheet()
	if err != nil {
		t.Fatalf("FirstSheet: %v", err)
	}
	rows, err := wb.Rows(sheet)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	for i := range rows {
		for len(rows[i]) < core.ColumnCount {
			rows[i] = append(rows[i], "")
		}
	}
	return rows
}

func newService(store docstore.Store) *AppendService {
	return NewAppendService(fullConn, docstore.Static(store), testLogger())
}

func TestAppendEntries_AppendsAfterExistingRows(t *testing.T) {
	store := seededStore(t, 10)
	svc := newService(store)

	n, err := svc.AppendEntries(context.Background(), core.Batch{
		entry("2024-01-01", "Store A", 500, "Cash", ""),
	})
	if err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}
	if n != 1 {
		t.Fatalf("appended %d, want 1", n)
	}
	if got := core.MsgAppended(n); got != "1件のデータを追加しました。" {
		t.Fatalf("message = %q", got)
	}

	rows := readRows(t, store)
	if len(rows) != 11 {
		t.Fatalf("document has %d rows, want 11", len(rows))
	}
	for i, want := range seedRows(10) {
		wantRow := []string{want[0].(string), "Shop", fmt.Sprint(want[2]), "Cash", ""}
		if !reflect.DeepEqual(rows[i], wantRow) {
			t.Errorf("row %d changed: %v, want %v", i+1, rows[i], wantRow)
		}
	}
	if want := []string{"2024-01-01", "Store A", "500", "Cash", ""}; !reflect.DeepEqual(rows[10], want) {
		t.Errorf("row 11 = %v, want %v", rows[10], want)
	}
	if store.Writes() != 1 {
		t.Errorf("writes = %d, want exactly one overwrite", store.Writes())
	}
}

func TestAppendEntries_PreservesBatchOrder(t *testing.T) {
	store := seededStore(t, 2)
	svc := newService(store)
	batch := core.Batch{
		entry("2024-02-01", "A", 1, "Cash", "first"),
		entry("2024-02-02", "B", 2, "Card", ""),
		{Date: "2024-02-03", Store: "C", Amount: core.EmptyAmount(), PaymentMethod: "QR", Notes: "empty amount"},
	}

	if _, err := svc.AppendEntries(context.Background(), batch); err != nil {
		t.Fatalf("AppendEntries: %v", err)
	}

	rows := readRows(t, store)
	if len(rows) != 2+len(batch) {
		t.Fatalf("document has %d rows, want %d", len(rows), 2+len(batch))
	}
	want := [][]string{
		{"2024-02-01", "A", "1", "Cash", "first"},
		{"2024-02-02", "B", "2", "Card", ""},
		{"2024-02-03", "C", "", "QR", "empty amount"},
	}
	if !reflect.DeepEqual(rows[2:], want) {
		t.Fatalf("appended rows = %v, want %v", rows[2:], want)
	}
}

func TestAppendEntries_TwiceAppendsTwice(t *testing.T) {
	store := seededStore(t, 3)
	svc := newService(store)
	batch := core.Batch{entry("2024-01-01", "Store A", 500, "Cash", "")}

	for i := 0; i < 2; i++ {
		if _, err := svc.AppendEntries(context.Background(), batch); err != nil {
			t.Fatalf("AppendEntries #%d: %v", i+1, err)
		}
	}

	rows := readRows(t, store)
	if len(rows) != 5 {
		t.Fatalf("document has %d rows, want 5", len(rows))
	}
	if !reflect.DeepEqual(rows[3], rows[4]) {
		t.Fatalf("duplicate rows differ: %v vs %v", rows[3], rows[4])
	}
}

func TestAppendEntries_DocumentMissing(t *testing.T) {
	store := memory.New()
	svc := newService(store)

	_, err := svc.AppendEntries(context.Background(), core.Batch{entry("2024-01-01", "Store A", 500, "Cash", "")})

	if core.KindOf(err) != core.KindNotFound {
		t.Fatalf("KindOf(%v) = %q, want not found", err, core.KindOf(err))
	}
	msg, _ := core.Message(err)
	if !strings.Contains(msg, testPath) {
		t.Fatalf("message %q should name %s", msg, testPath)
	}
	if store.Writes() != 0 {
		t.Fatalf("store was written %d times", store.Writes())
	}
	if _, ok := store.Get(testPath); ok {
		t.Fatal("missing document must not be created")
	}
}

// recordingStore logs every call.
type recordingStore struct {
	mu       sync.Mutex
	calls    []string
	exists   bool
	data     []byte
	existErr error
	readErr  error
	writeErr error
}

func (s *recordingStore) note(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingStore) Exists(context.Context, string) (bool, error) {
	s.note("exists")
	return s.exists, s.existErr
}

func (s *recordingStore) Read(context.Context, string) ([]byte, error) {
	s.note("read")
	return s.data, s.readErr
}

func (s *recordingStore) Write(_ context.Context, _ string, data []byte) error {
	s.note("write")
	if s.writeErr == nil {
		s.data = data
	}
	return s.writeErr
}

func TestAppendEntries_Preconditions(t *testing.T) {
	tests := []struct {
		name     string
		conn     config.Connection
		batch    core.Batch
		wantKind core.Kind
		wantErr  error
	}{
		{
			name:     "empty batch",
			conn:     fullConn(),
			batch:    core.Batch{},
			wantKind: core.KindInput,
			wantErr:  core.ErrEmptyBatch,
		},
		{
			name:     "nil batch",
			conn:     fullConn(),
			wantKind: core.KindInput,
			wantErr:  core.ErrEmptyBatch,
		},
		{
			name:     "missing password",
			conn:     config.Connection{URL: "https://dav", Username: "u", Path: testPath},
			batch:    core.Batch{entry("2024-01-01", "A", 1, "Cash", "")},
			wantKind: core.KindConfiguration,
			wantErr:  core.ErrConfigMissing,
		},
		{
			name:     "configuration checked before batch",
			conn:     config.Connection{},
			batch:    core.Batch{},
			wantKind: core.KindConfiguration,
			wantErr:  core.ErrConfigMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{exists: true}
			opened := false
			open := func(config.Connection) (docstore.Store, error) {
				opened = true
				return store, nil
			}
			conn := tt.conn
			svc := NewAppendService(func() config.Connection { return conn }, open, testLogger())

			_, err := svc.AppendEntries(context.Background(), tt.batch)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if core.KindOf(err) != tt.wantKind {
				t.Fatalf("KindOf = %q, want %q", core.KindOf(err), tt.wantKind)
			}
			if opened || len(store.calls) != 0 {
				t.Fatalf("store touched: opened=%v calls=%v", opened, store.calls)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	tests := []struct {
		name        string
		conn        config.Connection
		wantMissing []string
	}{
		{"complete", fullConn(), nil},
		{"empty", config.Connection{}, []string{"WEBDAV_URL", "WEBDAV_USERNAME", "WEBDAV_PASSWORD", "SPREADSHEET_PATH"}},
		{"missing path", config.Connection{URL: "https://dav", Username: "u", Password: "p"}, []string{"SPREADSHEET_PATH"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened := false
			open := func(config.Connection) (docstore.Store, error) {
				opened = true
				return &recordingStore{}, nil
			}
			conn := tt.conn
			svc := NewAppendService(func() config.Connection { return conn }, open, testLogger())

			err := svc.Preflight(context.Background())
			if opened {
				t.Fatal("preflight must not open the store")
			}
			if tt.wantMissing == nil {
				if err != nil {
					t.Fatalf("Preflight: %v", err)
				}
				return
			}
			var cerr *core.ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("error = %v, want ConfigError", err)
			}
			if !reflect.DeepEqual(cerr.Missing, tt.wantMissing) {
				t.Fatalf("missing = %v, want %v", cerr.Missing, tt.wantMissing)
			}
		})
	}
}

func TestAppendEntries_ProcessingErrors(t *testing.T) {
	valid, err := workbook.New("", seedRows(1))
	if err != nil {
		t.Fatalf("workbook.New: %v", err)
	}
	boom := errors.New("connection reset")

	tests := []struct {
		name      string
		store     *recordingStore
		wantOp    string
		wantCalls []string
	}{
		{
			name:      "exists fails",
			store:     &recordingStore{existErr: boom},
			wantOp:    core.OpExists,
			wantCalls: []string{"exists"},
		},
		{
			name:      "fetch fails",
			store:     &recordingStore{exists: true, readErr: boom},
			wantOp:    core.OpFetch,
			wantCalls: []string{"exists", "read"},
		},
		{
			name:      "malformed document",
			store:     &recordingStore{exists: true, data: []byte("garbage")},
			wantOp:    core.OpDecode,
			wantCalls: []string{"exists", "read"},
		},
		{
			name:      "write fails",
			store:     &recordingStore{exists: true, data: valid, writeErr: boom},
			wantOp:    core.OpWrite,
			wantCalls: []string{"exists", "read", "write"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(tt.store)

			_, err := svc.AppendEntries(context.Background(), core.Batch{entry("2024-01-01", "A", 1, "Cash", "")})

			var pe *core.ProcessingError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *core.ProcessingError", err)
			}
			if pe.Op != tt.wantOp {
				t.Fatalf("Op = %q, want %q", pe.Op, tt.wantOp)
			}
			if core.KindOf(err) != core.KindProcessing {
				t.Fatalf("KindOf = %q", core.KindOf(err))
			}
			if _, detail := core.Message(err); detail == "" {
				t.Fatal("processing errors should carry detail")
			}
			if !reflect.DeepEqual(tt.store.calls, tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", tt.store.calls, tt.wantCalls)
			}
		})
	}
}

func TestAppendEntries_OpenerFailure(t *testing.T) {
	open := func(config.Connection) (docstore.Store, error) {
		return nil, errors.New("bad url")
	}
	svc := NewAppendService(fullConn, open, testLogger())

	_, err := svc.AppendEntries(context.Background(), core.Batch{entry("2024-01-01", "A", 1, "Cash", "")})
	if core.KindOf(err) != core.KindProcessing {
		t.Fatalf("KindOf(%v) = %q", err, core.KindOf(err))
	}
}

func TestAppendEntries_SerialisedWithinProcess(t *testing.T) {
	store := seededStore(t, 1)
	svc := newService(store)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AppendEntries(context.Background(), core.Batch{entry("2024-03-01", fmt.Sprintf("S%d", i), int64(i), "Cash", "")})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AppendEntries: %v", err)
		}
	}

	if rows := readRows(t, store); len(rows) != 1+workers {
		t.Fatalf("document has %d rows, want %d (no lost updates)", len(rows), 1+workers)
	}
}

func TestAppendEntries_CanceledWhileWaiting(t *testing.T) {
	svc := newService(seededStore(t, 1))
	if err := svc.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer svc.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.AppendEntries(ctx, core.Batch{entry("2024-01-01", "A", 1, "Cash", "")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestTarget(t *testing.T) {
	if got := newService(memory.New()).Target(); got != testPath {
		t.Fatalf("Target() = %q", got)
	}
}
