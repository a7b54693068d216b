package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcmlink/mcm/internal/lin"
	"github.com/mcmlink/mcm/internal/sysapi"
)

var testSlave = Slave{
	NAD:          0x0A,
	SupplierID:   0x0013,
	FunctionID:   0x0042,
	Variant:      0x03,
	SerialNumber: 0x01020304,
	Data:         map[uint16][]byte{0xF190: {0x57, 0x30}},
}

// rawClient speaks the envelope protocol without the transport package.
type rawClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialSim(t *testing.T, sim *Simulator) *rawClient {
	t.Helper()
	srv := httptest.NewServer(sim)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &rawClient{t: t, conn: conn}
}

func (c *rawClient) roundTrip(msg string) map[string]any {
	c.t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		c.t.Fatalf("write: %v", err)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("read: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		c.t.Fatalf("reply %s: %v", data, err)
	}
	return out
}

func (c *rawClient) command(endpoint, command string, params any) map[string]any {
	c.t.Helper()
	p, _ := json.Marshal(params)
	msg := `{"id":"7","type":"command","payload":{"endpoint":"` + endpoint +
		`","command":"` + command + `","params":` + string(p) + `}}`
	return c.roundTrip(msg)
}

func payloadOf(t *testing.T, reply map[string]any) map[string]any {
	t.Helper()
	p, ok := reply["payload"].(map[string]any)
	if !ok {
		t.Fatalf("reply has no payload object: %v", reply)
	}
	return p
}

func dataOf(t *testing.T, reply map[string]any) []byte {
	t.Helper()
	raw, ok := payloadOf(t, reply)["data"].([]any)
	if !ok {
		t.Fatalf("reply has no data: %v", reply)
	}
	out := make([]byte, len(raw))
	for i, v := range raw {
		out[i] = byte(v.(float64))
	}
	return out
}

func expectError(t *testing.T, reply map[string]any, message string) {
	t.Helper()
	if reply["type"] != "error" {
		t.Fatalf("type = %v, want error (%v)", reply["type"], reply)
	}
	if got := payloadOf(t, reply)["message"]; got != message {
		t.Errorf("message = %v, want %q", got, message)
	}
}

func TestPingPong(t *testing.T) {
	sim := New()
	c := dialSim(t, sim)

	reply := c.roundTrip(`{"__ping__":true}`)
	if reply["__pong__"] != true {
		t.Errorf("reply = %v, want pong", reply)
	}
	if sim.PingCount() != 1 {
		t.Errorf("PingCount() = %d", sim.PingCount())
	}
}

func TestDropPongs(t *testing.T) {
	sim := New()
	sim.SetDropPongs(true)
	c := dialSim(t, sim)

	// the info reply must be the first thing to arrive
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(`{"__ping__":true}`)); err != nil {
		t.Fatal(err)
	}
	reply := c.roundTrip(`{"id":"1","type":"info"}`)
	if reply["type"] != "ack" {
		t.Errorf("reply = %v", reply)
	}
}

func TestInfo(t *testing.T) {
	c := dialSim(t, New(WithModel("Bench MCM"), WithFirmwareVersion("v9")))

	reply := c.roundTrip(`{"id":"1","type":"info"}`)
	if reply["id"] != "1" || reply["type"] != "ack" {
		t.Fatalf("reply = %v", reply)
	}
	p := payloadOf(t, reply)
	if p["api_rev"] != float64(2) || p["model"] != "Bench MCM" || p["firmware_version"] != "v9" {
		t.Errorf("payload = %v", p)
	}
}

func TestProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"not json", `{"id":`, MsgCorruptedRequest},
		{"unknown type", `{"id":"1","type":"bogus"}`, MsgCorruptedRequest},
		{"command without payload", `{"id":"1","type":"command"}`, MsgCorruptedRequest},
		{"missing command", `{"id":"1","type":"command","payload":{"endpoint":"lin"}}`, MsgProtocolUnknown},
		{"unknown endpoint", `{"id":"1","type":"command","payload":{"endpoint":"can","command":"x"}}`, MsgEndpointUnknown},
		{"unknown command", `{"id":"1","type":"command","payload":{"endpoint":"lin","command":"x"}}`, MsgCommandUnknown},
	}
	c := dialSim(t, New())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, c.roundTrip(tt.msg), tt.want)
		})
	}
}

func TestSystemWiFi(t *testing.T) {
	sim := New()
	c := dialSim(t, sim)

	p := payloadOf(t, c.command("system", "wifi", nil))
	if p["link_up"] != true {
		t.Fatalf("payload = %v", p)
	}
	ip := sysapi.IPv4(uint32(p["ip"].(float64)))
	if ip.String() != "192.168.4.1" {
		t.Errorf("ip = %s", ip)
	}

	sim.SetLinkUp(false)
	p = payloadOf(t, c.command("system", "wifi", nil))
	if p["link_up"] != false {
		t.Errorf("payload = %v", p)
	}
	if _, ok := p["ip"]; ok {
		t.Error("ip reported while link is down")
	}
}

func TestPower(t *testing.T) {
	sim := New()
	c := dialSim(t, sim)

	if reply := c.command("power_out", "control", map[string]any{"switch_enable": true}); reply["type"] != "ack" {
		t.Fatalf("control reply = %v", reply)
	}
	if !sim.SlavePowerEnabled() {
		t.Error("power not enabled")
	}
	if p := payloadOf(t, c.command("power_out", "status", nil)); p["switch_enabled"] != true {
		t.Errorf("status = %v", p)
	}
	expectError(t, c.command("power_out", "control", map[string]any{}), MsgCorruptedRequest)
}

func TestFrames(t *testing.T) {
	sim := New()
	c := dialSim(t, sim)

	m2s := map[string]any{"datalength": 2, "m2s": true, "baudrate": 19200, "enhanced_crc": true, "frameid": 0x21, "payload": []int{1, 2}}
	if reply := c.command("lin", "handle_message_on_bus", m2s); reply["type"] != "ack" {
		t.Fatalf("m2s reply = %v", reply)
	}

	s2m := map[string]any{"datalength": 4, "m2s": false, "baudrate": 19200, "enhanced_crc": true, "frameid": 0x21}
	if got := dataOf(t, c.command("lin", "handle_message_on_bus", s2m)); string(got) != "\x01\x02\x00\x00" {
		t.Errorf("s2m data = %v", got)
	}

	s2m["frameid"] = 0x22
	expectError(t, c.command("lin", "handle_message_on_bus", s2m), MsgLINFailed)

	m2s["datalength"] = 3
	expectError(t, c.command("lin", "handle_message_on_bus", m2s), MsgCorruptedRequest)
}

func TestDiagnostics(t *testing.T) {
	c := dialSim(t, New(WithSlaves(testSlave)))

	diag := func(nad int, payload ...int) map[string]any {
		return c.command("lin", "ld_diagnostic", map[string]any{"nad": nad, "baudrate": 19200, "payload": payload})
	}

	tests := []struct {
		name string
		nad  int
		req  []int
		want []byte
	}{
		{"product id", 0x0A, []int{0xB2, 0x00, 0xFF, 0x7F, 0xFF, 0xFF}, []byte{0xF2, 0x13, 0x00, 0x42, 0x00, 0x03}},
		{"product id broadcast", 0x7F, []int{0xB2, 0x00, 0x13, 0x00, 0x42, 0x00}, []byte{0xF2, 0x13, 0x00, 0x42, 0x00, 0x03}},
		{"serial number", 0x0A, []int{0xB2, 0x01, 0xFF, 0x7F, 0xFF, 0xFF}, []byte{0xF2, 0x04, 0x03, 0x02, 0x01}},
		{"unknown identifier", 0x0A, []int{0xB2, 0x20, 0xFF, 0x7F, 0xFF, 0xFF}, []byte{0x7F, 0xB2, 0x12}},
		{"read data id", 0x0A, []int{0x22, 0xF1, 0x90}, []byte{0x62, 0xF1, 0x90, 0x57, 0x30}},
		{"unknown data id", 0x0A, []int{0x22, 0x01, 0x02}, []byte{0x7F, 0x22, 0x31}},
		{"unsupported service", 0x0A, []int{0x99}, []byte{0x7F, 0x99, 0x11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dataOf(t, diag(tt.nad, tt.req...)); string(got) != string(tt.want) {
				t.Errorf("response = % X, want % X", got, tt.want)
			}
		})
	}

	// wrong supplier: the node stays silent
	expectError(t, diag(0x0A, 0xB2, 0x00, 0x14, 0x00, 0xFF, 0xFF), MsgLINFailed)
	// nobody at this NAD
	expectError(t, diag(0x0B, 0x22, 0xF1, 0x90), MsgLINFailed)
}

func TestSendAndReceiveMessage(t *testing.T) {
	c := dialSim(t, New(WithSlaves(testSlave)))

	send := map[string]any{"nad": 0x0A, "baudrate": 19200, "payload": []int{0x2E, 0x01, 0x00, 0xAA}}
	if reply := c.command("lin", "ld_send_message", send); reply["type"] != "ack" {
		t.Fatalf("send reply = %v", reply)
	}

	recv := map[string]any{"nad": 0x0A, "baudrate": 19200}
	if got := dataOf(t, c.command("lin", "ld_receive_message", recv)); string(got) != "\x6E\x01\x00" {
		t.Errorf("received % X", got)
	}
	expectError(t, c.command("lin", "ld_receive_message", recv), MsgLINFailed)

	// the write is visible to later reads
	read := map[string]any{"nad": 0x0A, "baudrate": 19200, "payload": []int{0x22, 0x01, 0x00}}
	if got := dataOf(t, c.command("lin", "ld_diagnostic", read)); string(got) != "\x62\x01\x00\xAA" {
		t.Errorf("read back % X", got)
	}
}

func TestBootloader(t *testing.T) {
	sim := New()
	c := dialSim(t, sim)

	params := map[string]any{"memory": "flash", "hexfile": ":00000001FF", "manpow": true, "bitrate": 300}
	if reply := c.command("bootloader", "program", params); reply["type"] != "ack" {
		t.Fatalf("program reply = %v", reply)
	}
	rec, ok := sim.LastBootload()
	if !ok || rec.Operation != "program" || rec.Memory != "flash" || rec.HexFile != ":00000001FF" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Params["bitrate"] != float64(300) {
		t.Errorf("bitrate = %v", rec.Params["bitrate"])
	}

	sim.SetBootloadFailure("Bootloader error: flash write failed")
	expectError(t, c.command("bootloader", "verify", params), "Bootloader error: flash write failed")

	expectError(t, c.command("bootloader", "program", map[string]any{"memory": "rom", "hexfile": "x"}), MsgCorruptedRequest)
	expectError(t, c.command("bootloader", "erase", params), MsgCommandUnknown)
}

func TestBootloadHoldsBus(t *testing.T) {
	sim := New()
	sim.SetBootloadDelay(300 * time.Millisecond)
	c := dialSim(t, sim)

	boot := `{"id":"1","type":"command","payload":{"endpoint":"bootloader","command":"program","params":{"memory":"flash","hexfile":":00000001FF"}}}`
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(boot)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	// the wake up is answered before the bootload finishes
	reply := c.command("lin", "l_ifc_wake_up", map[string]any{"pulse_time": 200})
	expectError(t, reply, MsgInterfaceBusy)

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ack"`) {
		t.Errorf("bootload reply = %s", data)
	}
	if sim.WakeUpCount() != 0 {
		t.Error("wake up reached the bus")
	}
}

func TestRESTAPI(t *testing.T) {
	sim := New(WithModel("Bench MCM"))
	srv := httptest.NewServer(sim)
	defer srv.Close()
	client := sysapi.NewClientWithURL(srv.URL)
	ctx := context.Background()

	info, err := client.GetInfo(ctx)
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Model != "Bench MCM" || info.ResetReason != 1 {
		t.Errorf("info = %+v", info)
	}

	cfg, err := client.GetNetwork(ctx)
	if err != nil {
		t.Fatalf("GetNetwork() error = %v", err)
	}
	if cfg.IP.String() != "192.168.4.1" || cfg.Hostname != DefaultHostname {
		t.Errorf("network = %+v", cfg)
	}

	hostname := "bench-2"
	updated, err := client.SetNetwork(ctx, &sysapi.NetworkUpdate{Hostname: &hostname})
	if err != nil {
		t.Fatalf("SetNetwork() error = %v", err)
	}
	if updated.Hostname != "bench-2" {
		t.Errorf("Hostname = %q", updated.Hostname)
	}

	if err := client.Identify(ctx); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if err := client.Reboot(ctx); err != nil {
		t.Fatalf("Reboot() error = %v", err)
	}
	if sim.IdentifyCount() != 1 || sim.RebootCount() != 1 {
		t.Errorf("identify=%d reboot=%d", sim.IdentifyCount(), sim.RebootCount())
	}

	resp, err := http.Post(srv.URL+sysapi.PathReboot, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST reboot status = %d", resp.StatusCode)
	}
}

func TestRebootClosesSessions(t *testing.T) {
	sim := New()
	srv := httptest.NewServer(sim)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/v1", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := sysapi.NewClientWithURL(srv.URL).Reboot(context.Background()); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Text != "rebooting" {
		t.Fatalf("ReadMessage() error = %v, want close 'rebooting'", err)
	}
}

func TestSlaveMatchesWildcards(t *testing.T) {
	s := testSlave
	tests := []struct {
		supplier, function uint16
		want               bool
	}{
		{lin.WildcardSupplierID, lin.WildcardFunctionID, true},
		{0x0013, 0x0042, true},
		{0x0013, lin.WildcardFunctionID, true},
		{0x0014, lin.WildcardFunctionID, false},
		{lin.WildcardSupplierID, 0x0043, false},
	}
	for _, tt := range tests {
		if got := s.matches(tt.supplier, tt.function); got != tt.want {
			t.Errorf("matches(0x%04X, 0x%04X) = %v, want %v", tt.supplier, tt.function, got, tt.want)
		}
	}
}
