package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcmlink/mcm/internal/config"
	"github.com/mcmlink/mcm/internal/simulator"
)

var testSlave = simulator.Slave{
	NAD:          0x0A,
	SupplierID:   0x0013,
	FunctionID:   0x4242,
	Variant:      0x01,
	SerialNumber: 123456,
}

type cliEnv struct {
	sim    *simulator.Simulator
	host   string
	config string
}

func newCLIEnv(t *testing.T, opts ...simulator.Option) *cliEnv {
	t.Helper()
	for _, k := range []string{"MCM_MASTER", "MCM_SECURE", "MCM_BAUDRATE", "MCM_HEARTBEAT", "MCM_FORMAT", "MCM_LOG_LEVEL", "MCM_CONFIG"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}

	sim := simulator.New(opts...)
	srv := httptest.NewServer(sim)
	t.Cleanup(srv.Close)
	return &cliEnv{
		sim:    sim,
		host:   strings.TrimPrefix(srv.URL, "http://"),
		config: filepath.Join(t.TempDir(), "config.yaml"),
	}
}

// run executes mcmctl against the simulator with an isolated config file.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.config, "--timeout", "5s"}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestInfoCommand(t *testing.T) {
	env := newCLIEnv(t, simulator.WithModel("Bench MCM"), simulator.WithFirmwareVersion("v2.2.0"))

	out, err := env.run(t, "", "info", "-m", env.host)
	if err != nil {
		t.Fatalf("info error = %v\n%s", err, out)
	}
	for _, want := range []string{"Model:", "Bench MCM", "v2.2.0", "API revision: 2", "link up"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInfoRecordsRegisteredMaster(t *testing.T) {
	env := newCLIEnv(t, simulator.WithModel("Bench MCM"))

	if out, err := env.run(t, "", "masters", "add", "bench", env.host); err != nil {
		t.Fatalf("masters add error = %v\n%s", err, out)
	}
	// The first registered master becomes the default.
	out, err := env.run(t, "", "info", "--format", "json")
	if err != nil {
		t.Fatalf("info error = %v\n%s", err, out)
	}

	var got infoOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if got.Device.Model != "Bench MCM" || got.Host != env.host {
		t.Errorf("info = %+v", got)
	}

	reg, err := config.LoadRegistryFrom(env.config)
	if err != nil {
		t.Fatal(err)
	}
	m := reg.GetMaster("bench")
	if m == nil || m.Model != "Bench MCM" || m.LastSeen.IsZero() {
		t.Errorf("registry master = %+v", m)
	}
}

func TestPowerCommands(t *testing.T) {
	env := newCLIEnv(t)

	if _, err := env.run(t, "", "-m", env.host, "power", "on"); err != nil {
		t.Fatalf("power on error = %v", err)
	}
	if !env.sim.SlavePowerEnabled() {
		t.Error("slave power not enabled")
	}

	out, err := env.run(t, "", "-m", env.host, "--format", "json", "power", "status")
	if err != nil {
		t.Fatalf("power status error = %v", err)
	}
	var status powerOutput
	if err := json.Unmarshal([]byte(out), &status); err != nil || !status.Enabled {
		t.Errorf("status = %q, %v", out, err)
	}

	if _, err := env.run(t, "", "-m", env.host, "power", "off"); err != nil {
		t.Fatalf("power off error = %v", err)
	}
	if env.sim.SlavePowerEnabled() {
		t.Error("slave power still enabled")
	}
}

func TestLinCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.sim.SetFrame(0x11, []byte{0xDE, 0xAD})

	if _, err := env.run(t, "", "-m", env.host, "lin", "wakeup"); err != nil {
		t.Fatalf("wakeup error = %v", err)
	}
	if env.sim.WakeUpCount() != 1 {
		t.Errorf("WakeUpCount() = %d", env.sim.WakeUpCount())
	}

	if _, err := env.run(t, "", "-m", env.host, "lin", "m2s", "0x10", "01 02 03"); err != nil {
		t.Fatalf("m2s error = %v", err)
	}
	if got, _ := env.sim.Frame(0x10); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("frame 0x10 = % X", got)
	}

	out, err := env.run(t, "", "-m", env.host, "lin", "s2m", "0x11", "2")
	if err != nil {
		t.Fatalf("s2m error = %v", err)
	}
	if !strings.Contains(out, "DE AD") {
		t.Errorf("s2m output = %q", out)
	}

	if _, err := env.run(t, "", "-m", env.host, "lin", "m2s", "0x40", "01"); err == nil {
		t.Error("frame id 0x40 should be rejected")
	}
}

func TestDiagReadByID(t *testing.T) {
	env := newCLIEnv(t, simulator.WithSlaves(testSlave))

	out, err := env.run(t, "", "-m", env.host, "--format", "json", "diag", "read-by-id", "0x0A", "0")
	if err != nil {
		t.Fatalf("read-by-id error = %v\n%s", err, out)
	}
	var got readByIDOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if got.SupplierID == nil || *got.SupplierID != 0x0013 || *got.FunctionID != 0x4242 || *got.Variant != 0x01 {
		t.Errorf("product id = %+v", got)
	}

	out, err = env.run(t, "", "-m", env.host, "diag", "read-by-id", "0x0A", "1")
	if err != nil {
		t.Fatalf("read-by-id serial error = %v", err)
	}
	if !strings.Contains(out, "123456") {
		t.Errorf("serial output = %q", out)
	}
}

func TestDiagSendNegativeResponse(t *testing.T) {
	env := newCLIEnv(t, simulator.WithSlaves(testSlave))

	_, err := env.run(t, "", "-m", env.host, "diag", "send", "0x0A", "0x22", "01 02")
	if err == nil || !strings.Contains(err.Error(), "0x31") {
		t.Errorf("diag send error = %v, want NRC 0x31", err)
	}

	if _, err := env.run(t, "", "-m", env.host, "diag", "send", "0x0A", "0x2E", "01 02 AA"); err != nil {
		t.Fatalf("write by id error = %v", err)
	}
	out, err := env.run(t, "", "-m", env.host, "diag", "send", "0x0A", "0x22", "01 02")
	if err != nil {
		t.Fatalf("read by id error = %v", err)
	}
	if !strings.Contains(out, "01 02 AA") {
		t.Errorf("response = %q", out)
	}
}

func writeHexFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.hex")
	hex := ":0400000001020304F2\n:00000001FF\n"
	if err := os.WriteFile(path, []byte(hex), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBootloadCommand(t *testing.T) {
	env := newCLIEnv(t)
	hexPath := writeHexFile(t)

	out, err := env.run(t, "", "-m", env.host, "bootload", hexPath, "--yes", "--memory", "EEPROM", "--flash-keys", "0x1,0x2")
	if err != nil {
		t.Fatalf("bootload error = %v\n%s", err, out)
	}
	rec, ok := env.sim.LastBootload()
	if !ok {
		t.Fatal("simulator saw no bootload")
	}
	if rec.Operation != "program" || rec.Memory != "eeprom" || !strings.HasPrefix(rec.HexFile, ":04000000") {
		t.Errorf("bootload record = %+v", rec)
	}
	if rec.Params["one2many"] != true {
		t.Errorf("one2many = %v, want true by default", rec.Params["one2many"])
	}
	if !strings.Contains(out, "Program eeprom complete") {
		t.Errorf("output = %q", out)
	}

	if _, err := env.run(t, "", "-m", env.host, "bootload", hexPath, "--yes", "--one2many=false"); err != nil {
		t.Fatalf("bootload error = %v", err)
	}
	if rec, _ := env.sim.LastBootload(); rec.Params["one2many"] != false {
		t.Errorf("one2many = %v, want false", rec.Params["one2many"])
	}
}

func TestBootloadNeedsConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	hexPath := writeHexFile(t)

	_, err := env.run(t, "no\n", "-m", env.host, "bootload", hexPath)
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Fatalf("bootload error = %v, want cancelled", err)
	}
	if _, ok := env.sim.LastBootload(); ok {
		t.Error("bootload ran without confirmation")
	}

	if out, err := env.run(t, "I AGREE\n", "-m", env.host, "bootload", hexPath); err != nil {
		t.Fatalf("confirmed bootload error = %v\n%s", err, out)
	}
	if _, ok := env.sim.LastBootload(); !ok {
		t.Error("confirmed bootload did not run")
	}
}

func TestBootloadVerifySkipsConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	hexPath := writeHexFile(t)

	if _, err := env.run(t, "", "-m", env.host, "bootload", hexPath, "--operation", "verify"); err != nil {
		t.Fatalf("verify error = %v", err)
	}
	if rec, ok := env.sim.LastBootload(); !ok || rec.Operation != "verify" {
		t.Errorf("bootload record = %+v, %v", rec, ok)
	}
}

func TestBootloadFailure(t *testing.T) {
	env := newCLIEnv(t)
	env.sim.SetBootloadFailure("LIN Failed")

	out, err := env.run(t, "", "-m", env.host, "bootload", writeHexFile(t), "--yes")
	if err == nil {
		t.Fatal("bootload should fail")
	}
	if !strings.Contains(err.Error(), "LIN Failed") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(out, "FAILED") {
		t.Errorf("failure box missing:\n%s", out)
	}
}

func TestSystemNetworkCommands(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "-m", env.host, "system", "network")
	if err != nil {
		t.Fatalf("network error = %v", err)
	}
	if !strings.Contains(out, "192.168.4.1") {
		t.Errorf("network output = %q", out)
	}

	if _, err := env.run(t, "s3cret\n", "-m", env.host, "system", "set-network", "--hostname", "mcm-bench", "--password", "-"); err != nil {
		t.Fatalf("set-network error = %v", err)
	}
	out, err = env.run(t, "", "-m", env.host, "--format", "json", "system", "network")
	if err != nil {
		t.Fatalf("network error = %v", err)
	}
	if !strings.Contains(out, `"hostname": "mcm-bench"`) || strings.Contains(out, "s3cret") {
		t.Errorf("network json = %s", out)
	}

	if _, err := env.run(t, "", "-m", env.host, "system", "set-network"); err == nil {
		t.Error("set-network without settings should fail")
	}
}

func TestSystemIdentifyAndReboot(t *testing.T) {
	env := newCLIEnv(t)

	if _, err := env.run(t, "", "-m", env.host, "system", "identify"); err != nil {
		t.Fatalf("identify error = %v", err)
	}
	if env.sim.IdentifyCount() != 1 {
		t.Errorf("IdentifyCount() = %d", env.sim.IdentifyCount())
	}

	if _, err := env.run(t, "", "-m", env.host, "system", "reboot"); err != nil {
		t.Fatalf("reboot error = %v", err)
	}
	if env.sim.RebootCount() != 1 {
		t.Errorf("RebootCount() = %d", env.sim.RebootCount())
	}
}

func TestMastersCommands(t *testing.T) {
	env := newCLIEnv(t)

	steps := [][]string{
		{"masters", "add", "bench", "192.168.4.1"},
		{"masters", "add", "lab", "mcm-lab.local", "--secure", "--nickname", "Lab"},
		{"masters", "default", "lab"},
	}
	for _, args := range steps {
		if out, err := env.run(t, "", args...); err != nil {
			t.Fatalf("%v error = %v\n%s", args, err, out)
		}
	}

	out, err := env.run(t, "", "--format", "json", "masters", "list")
	if err != nil {
		t.Fatalf("list error = %v", err)
	}
	var entries []masterEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if len(entries) != 2 || entries[0].Name != "bench" || entries[0].Default || !entries[1].Default || !entries[1].Master.Secure {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := env.run(t, "", "masters", "remove", "lab"); err != nil {
		t.Fatalf("remove error = %v", err)
	}
	if _, err := env.run(t, "", "masters", "remove", "lab"); err == nil {
		t.Error("removing an unknown master should fail")
	}
	if _, err := env.run(t, "", "masters", "default", "nope"); err == nil {
		t.Error("defaulting an unknown master should fail")
	}

	out, err = env.run(t, "", "masters", "list")
	if err != nil || !strings.Contains(out, "bench") || strings.Contains(out, "lab") {
		t.Errorf("list = %q, %v", out, err)
	}
}

func TestNoMasterConfigured(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "", "info"); err == nil || !strings.Contains(err.Error(), "no master") {
		t.Errorf("info error = %v", err)
	}
}

func TestUnknownFormat(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "", "--format", "xml", "masters", "list"); err == nil {
		t.Error("unknown format should fail")
	}
}
