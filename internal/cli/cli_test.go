package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const aliceCSV = "上传数量,播放(120),状态\n" +
	"1,,最近一小时发布视频3个，2个未限流，1个限流，0个判断失败\n" +
	"2,,\n"

type fakeFeishu struct {
	mu     sync.Mutex
	pushed map[string]any
}

func (f *fakeFeishu) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 0, "tenant_access_token": "t-1", "expire": 7200})
	})

	mux.HandleFunc("GET /bitable/v1/apps/app1/tables", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{
			"items": []any{map[string]any{"table_id": "tbl1", "name": "summary"}},
		}})
	})

	mux.HandleFunc("GET /bitable/v1/apps/app1/tables/tbl1/fields", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{
			"items": []any{map[string]any{"field_id": "fld1", "field_name": "归属", "type": 1}},
		}})
	})

	mux.HandleFunc("POST /bitable/v1/apps/app1/tables/tbl1/records", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Fields map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.pushed = body.Fields
		f.mu.Unlock()

		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{
			"record": map[string]any{"record_id": "rec1", "fields": body.Fields},
		}})
	})

	mux.HandleFunc("GET /bitable/v1/apps/lab/tables/orders/records", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{
			"has_more": false,
			"items": []any{
				map[string]any{"record_id": "r1", "fields": map[string]any{
					"分组": "alice组", "订单日期": "2025-07-15", "订单金额(元)": "￥1,200.50",
				}},
				map[string]any{"record_id": "r2", "fields": map[string]any{
					"分组": "bob组", "订单日期": "2025-07-15", "订单金额(元)": 99,
				}},
			},
		}})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()

	dir := t.TempDir()
	content := fmt.Sprintf(`modules:
  report:
    default_quota: 4
feishu:
  base_url: %s
  app_id: cli_a
  app_secret: secret
  token_file: %s
  retry:
    backoff: -1s
  summary:
    app_token: app1
  lookup_order: true
  lab:
    app_token: lab
    table_id: orders
history:
  path: %s
  node_id: 3
`, baseURL, filepath.Join(dir, "token.json"), filepath.Join(dir, "history.db"))

	path := filepath.Join(dir, "vidstat.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReportPrintsTotals(t *testing.T) {
	dir := t.TempDir()
	alice := writeFile(t, dir, "alice_07.16.csv", aliceCSV)
	broken := writeFile(t, dir, "bob_07.16.xlsx", "not a workbook")

	if _, err := execute(t, "report", "--config", filepath.Join(dir, "missing.yaml"), "--quota", "4", alice, broken); err == nil {
		t.Fatal("expected error for an explicit config file that does not exist")
	}

	out, err := execute(t, "report", "--quota", "4", alice, broken)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	for _, want := range []string{
		"alice_07.16.csv - 播放量: 120, 上传成功: 5",
		"bob_07.16.xlsx: 读取失败",
		"归属：alice,bob",
		"-07-16",
		"总上传成功：5",
		"总限流：1",
		"成功存活量：4",
		"存活率：80.00%",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "出单金额") {
		t.Fatalf("order amount printed without a lookup:\n%s", out)
	}
}

func TestReportWithoutThrottle(t *testing.T) {
	dir := t.TempDir()
	alice := writeFile(t, dir, "alice_07.16.csv", aliceCSV)

	out, err := execute(t, "report", "--quota", "3", "--throttle=false", alice)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "总上传成功：3") || strings.Contains(out, "存活率") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestReportRequiresQuota(t *testing.T) {
	dir := t.TempDir()
	alice := writeFile(t, dir, "alice_07.16.csv", aliceCSV)

	if _, err := execute(t, "report", alice); err == nil || !strings.Contains(err.Error(), "--quota") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestReportPushAndHistory(t *testing.T) {
	fake := &fakeFeishu{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	cfg := writeConfig(t, srv.URL)
	dir := t.TempDir()
	writeFile(t, dir, "alice_07.16.csv", aliceCSV)
	writeFile(t, dir, "~$alice_07.16.xlsx", "lock")
	writeFile(t, dir, "notes.txt", "ignored")

	out, err := execute(t, "report", "--config", cfg, "--dir", dir, "--date", "2025-07-16", "--push")
	if err != nil {
		t.Fatalf("report: %v\n%s", err, out)
	}

	for _, want := range []string{
		"检测到的数据文件",
		"日期：2025-07-16",
		"出单金额：1200.50",
		"数据写入成功！record_id=rec1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "notes.txt") || strings.Contains(out, "~$") {
		t.Fatalf("non data files detected:\n%s", out)
	}

	fake.mu.Lock()
	pushed := fake.pushed
	fake.mu.Unlock()
	if pushed["归属"] != "alice" || pushed["出单金额"] != 1200.5 || pushed["存活率"] != "80.00%" {
		t.Fatalf("unexpected pushed fields: %v", pushed)
	}

	out, err = execute(t, "history", "--config", cfg, "--owner", "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "2025-07-16\talice") || !strings.Contains(out, "rec1") {
		t.Fatalf("unexpected history output:\n%s", out)
	}

	out, err = execute(t, "fields", "--config", cfg)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if !strings.Contains(out, "table_id: tbl1") || !strings.Contains(out, "fld1\t归属") {
		t.Fatalf("unexpected fields output:\n%s", out)
	}
}
