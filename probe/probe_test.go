package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jonwraymond/healthops/health"
)

func evaluate(t *testing.T, dep health.Dependency) *health.CheckResult {
	t.Helper()
	r, err := dep.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return r
}

func TestMemory(t *testing.T) {
	tests := []struct {
		name  string
		alloc uint64
		want  health.CheckStatus
	}{
		{"normal", 500, health.StatusOK},
		{"high", 850, health.StatusMinor},
		{"critical", 970, health.StatusMajor},
		{"over budget", 1200, health.StatusOutage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMemory(health.Descriptor{ID: "memory"}, MemoryConfig{
				MaxAlloc:  1000,
				ReadStats: func(s *runtime.MemStats) { s.Alloc = tt.alloc },
			})
			if err != nil {
				t.Fatalf("NewMemory() error = %v", err)
			}
			if got := evaluate(t, m).Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemory_Defaults(t *testing.T) {
	m, err := NewMemory(health.Descriptor{ID: "memory"}, MemoryConfig{WarningThreshold: 1.5})
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	if m.config.WarningThreshold != 0.8 {
		t.Errorf("WarningThreshold = %v, want 0.8", m.config.WarningThreshold)
	}
	if m.config.CriticalThreshold != 0.95 {
		t.Errorf("CriticalThreshold = %v, want 0.95", m.config.CriticalThreshold)
	}
	if m.Descriptor().Type != health.TypeMemory {
		t.Errorf("Type = %q, want %q", m.Descriptor().Type, health.TypeMemory)
	}

	// The live process should have a readable budget.
	if r := evaluate(t, m); r.Timestamp().IsZero() {
		t.Error("Timestamp() should be set")
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.csv")
	if err := os.WriteFile(path, []byte("id,value\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	modified := time.Now().Add(-90 * time.Minute)
	if err := os.Chtimes(path, modified, modified); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	tests := []struct {
		name   string
		maxAge time.Duration
		want   health.CheckStatus
	}{
		{"fresh", 2 * time.Hour, health.StatusOK},
		{"late", time.Hour, health.StatusMinor},
		{"very late", 40 * time.Minute, health.StatusMajor},
		{"abandoned", 10 * time.Minute, health.StatusOutage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dep, err := NewFile(health.Descriptor{ID: "feed"}, FileConfig{Path: path, MaxAge: tt.maxAge})
			if err != nil {
				t.Fatalf("NewFile() error = %v", err)
			}
			if got := evaluate(t, dep).Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFile_Missing(t *testing.T) {
	dep, _ := NewFile(health.Descriptor{ID: "feed"}, FileConfig{Path: filepath.Join(t.TempDir(), "absent")})
	r := evaluate(t, dep)
	if r.Status() != health.StatusOutage || !errors.Is(r.Err(), os.ErrNotExist) {
		t.Errorf("Evaluate() = %v (%v), want OUTAGE with ErrNotExist", r.Status(), r.Err())
	}
	if dep.Descriptor().Type != health.TypeDisk {
		t.Errorf("Type = %q, want %q", dep.Descriptor().Type, health.TypeDisk)
	}

	if _, err := NewFile(health.Descriptor{ID: "feed"}, FileConfig{}); !errors.Is(err, ErrMissingTarget) {
		t.Errorf("NewFile() without path error = %v, want ErrMissingTarget", err)
	}
}

func TestSQL(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	dep, err := NewSQL(health.Descriptor{ID: "orders-db"}, db, WithQuery("SELECT 1"))
	if err != nil {
		t.Fatalf("NewSQL() error = %v", err)
	}

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	if got := evaluate(t, dep).Status(); got != health.StatusOK {
		t.Errorf("Status() = %v, want OK", got)
	}

	mock.ExpectPing().WillReturnError(errors.New("connection reset by peer"))
	r := evaluate(t, dep)
	if r.Status() != health.StatusOutage {
		t.Errorf("Status() = %v, want OUTAGE", r.Status())
	}
	if r.ErrorMessage() != "database ping failed: connection reset by peer" {
		t.Errorf("ErrorMessage() = %q", r.ErrorMessage())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
	if dep.Descriptor().Type != health.TypeOtherDatabase {
		t.Errorf("Type = %q, want %q", dep.Descriptor().Type, health.TypeOtherDatabase)
	}
}

func TestSQL_NilDB(t *testing.T) {
	if _, err := NewSQL(health.Descriptor{ID: "db"}, nil); !errors.Is(err, ErrMissingClient) {
		t.Errorf("NewSQL(nil) error = %v, want ErrMissingClient", err)
	}
}

func TestHTTP(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Probe") != "healthops" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	dep, err := NewHTTP(health.Descriptor{ID: "billing"}, HTTPConfig{
		URL:    srv.URL,
		Header: http.Header{"X-Probe": []string{"healthops"}},
	})
	if err != nil {
		t.Fatalf("NewHTTP() error = %v", err)
	}

	tests := []struct {
		code int
		want health.CheckStatus
	}{
		{http.StatusOK, health.StatusOK},
		{http.StatusNoContent, health.StatusOK},
		{http.StatusNotFound, health.StatusOutage},
		{http.StatusServiceUnavailable, health.StatusOutage},
	}
	for _, tt := range tests {
		status.Store(int32(tt.code))
		r := evaluate(t, dep)
		if r.Status() != tt.want {
			t.Errorf("status %d: Status() = %v, want %v", tt.code, r.Status(), tt.want)
		}
		if tt.want == health.StatusOutage && !errors.Is(r.Err(), ErrUnhealthyStatus) {
			t.Errorf("status %d: Err() = %v, want ErrUnhealthyStatus", tt.code, r.Err())
		}
	}
}

func TestHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	dep, _ := NewHTTP(health.Descriptor{ID: "billing"}, HTTPConfig{URL: url})
	if got := evaluate(t, dep).Status(); got != health.StatusOutage {
		t.Errorf("Status() = %v, want OUTAGE", got)
	}
	if _, err := NewHTTP(health.Descriptor{ID: "billing"}, HTTPConfig{}); !errors.Is(err, ErrMissingTarget) {
		t.Errorf("NewHTTP() without url error = %v, want ErrMissingTarget", err)
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	dep, err := NewRedis(health.Descriptor{ID: "sessions"}, client)
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	if got := evaluate(t, dep).Status(); got != health.StatusOK {
		t.Errorf("Status() = %v, want OK", got)
	}

	mr.SetError("LOADING Redis is loading the dataset in memory")
	r := evaluate(t, dep)
	if r.Status() != health.StatusOutage {
		t.Errorf("Status() = %v, want OUTAGE", r.Status())
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(RedisConfig{Addrs: []string{mr.Addr()}})
	if err != nil {
		t.Fatalf("NewRedisClient() error = %v", err)
	}
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	if _, err := NewRedisClient(RedisConfig{}); !errors.Is(err, ErrMissingTarget) {
		t.Errorf("NewRedisClient() without addrs error = %v, want ErrMissingTarget", err)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestKafka(t *testing.T) {
	var fail bool
	dep, err := NewKafka(health.Descriptor{ID: "events"}, pingFunc(func(context.Context) error {
		if fail {
			return errors.New("unable to dial: connection refused")
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("NewKafka() error = %v", err)
	}

	if got := evaluate(t, dep).Status(); got != health.StatusOK {
		t.Errorf("Status() = %v, want OK", got)
	}
	fail = true
	r := evaluate(t, dep)
	if r.Status() != health.StatusOutage || r.ErrorMessage() != "kafka ping failed: unable to dial: connection refused" {
		t.Errorf("Evaluate() = %v %q", r.Status(), r.ErrorMessage())
	}

	if _, err := NewKafka(health.Descriptor{ID: "events"}, nil); !errors.Is(err, ErrMissingClient) {
		t.Errorf("NewKafka(nil) error = %v, want ErrMissingClient", err)
	}
}

func TestKafka_UnreachableBroker(t *testing.T) {
	client, err := NewKafkaClient([]string{"127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewKafkaClient() error = %v", err)
	}
	defer client.Close()

	dep, _ := NewKafka(health.Descriptor{ID: "events"}, client)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	r, _ := dep.Evaluate(ctx)
	if r.Status() != health.StatusOutage {
		t.Errorf("Status() = %v, want OUTAGE", r.Status())
	}
}
