// ABOUTME: Tests for the headless run mode with a real engine and canvas
// ABOUTME: Covers presentation, output formats, PNG snapshots, previews, and cancellation

package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mauromedda/overlay-go/internal/log"
	"github.com/mauromedda/overlay-go/internal/replay"
	"github.com/mauromedda/overlay-go/pkg/overlay"
)

// writeScript writes a red 4x4 PNG and a script presenting it as overlay 1
// at (100,100) 40x40 on a 1280x720 session.
func writeScript(t *testing.T, extra string) *replay.Script {
	t.Helper()
	dir := t.TempDir()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "red.png"), buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	src := `{"at":0,"event":["CONFIGURE","0","0","1280x720"]}
{"at":0,"event":["BASETIME","now"]}
{"at":0,"event":["START"]}
{"at":0,"overlay":{"id":1,"mode":"active","x":100,"y":100,"w":40,"h":40,"ts":0,"image":"red.png"}}
` + extra
	path := filepath.Join(dir, "session.jsonl")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := replay.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	return s
}

func testDeps(out *bytes.Buffer) Deps {
	return Deps{
		Engine: overlay.Config{Surface: overlay.Size{Width: 1280, Height: 720}},
		Log:    log.Discard(),
		Out:    out,
	}
}

func TestRun_PresentsAndSnapshots(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	snap := filepath.Join(t.TempDir(), "frame.png")
	res, err := Run(context.Background(), Config{Snapshot: snap, Linger: 300 * time.Millisecond}, testDeps(&out), writeScript(t, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Stats.Presented != 1 || res.Stats.Removed != 1 {
		t.Errorf("stats = %+v, want 1 presented and 1 removed", res.Stats)
	}
	if len(res.Tallies) != 1 || res.Tallies[0].Adds != 1 || res.Tallies[0].Removes != 1 {
		t.Errorf("tallies = %+v", res.Tallies)
	}
	if res.Live != 0 {
		t.Errorf("live views after stop = %d", res.Live)
	}

	text := out.String()
	for _, want := range []string{"state RUNNING", "presented id=1", "removed id=1", "state NULL", "session " + res.Session} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	f, err := os.Open(snap)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	defer f.Close()
	frame, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if frame.Bounds() != image.Rect(0, 0, 1280, 720) {
		t.Errorf("snapshot bounds = %v", frame.Bounds())
	}
	if r, _, _, a := frame.At(120, 120).RGBA(); r>>8 < 200 || a>>8 < 200 {
		t.Errorf("overlay pixel = %v, want red", frame.At(120, 120))
	}
	if _, _, _, a := frame.At(10, 10).RGBA(); a != 0 {
		t.Error("pixel outside the overlay should be transparent")
	}
}

func TestRun_StreamJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, err := Run(context.Background(), Config{OutputFormat: "stream-json", Linger: 200 * time.Millisecond}, testDeps(&out), writeScript(t, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	var last struct {
		Type  string        `json:"type"`
		Stats overlay.Stats `json:"stats"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("summary line: %v", err)
	}
	if last.Type != "summary" || last.Stats.Presented != 1 {
		t.Errorf("summary = %+v", last)
	}
	for _, l := range lines[:len(lines)-1] {
		var n jsonNote
		if err := json.Unmarshal([]byte(l), &n); err != nil || n.Kind == "" {
			t.Errorf("bad notification line %q: %v", l, err)
		}
	}
}

func TestRun_JSONAndPreview(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, err := Run(context.Background(), Config{OutputFormat: "json", Preview: true, Linger: 200 * time.Millisecond}, testDeps(&out), writeScript(t, ""))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	first, rest, _ := strings.Cut(out.String(), "\n")
	var res jsonResult
	if err := json.Unmarshal([]byte(first), &res); err != nil {
		t.Fatalf("json summary: %v", err)
	}
	if len(res.Notes) == 0 || len(res.Tallies) != 1 {
		t.Errorf("summary = %+v", res)
	}
	if !strings.Contains(rest, "▄") {
		t.Error("preview should follow the summary")
	}
}

func TestRun_UnknownFormat(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if _, err := Run(context.Background(), Config{OutputFormat: "xml"}, testDeps(&out), &replay.Script{}); err == nil {
		t.Error("unknown format should fail before starting")
	}
}

func TestRun_CancelStopsCleanly(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	script := writeScript(t, `{"at":60000000,"event":["STOP"]}`+"\n")
	start := time.Now()
	res, err := Run(ctx, Config{}, testDeps(&out), script)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("cancellation did not cut the replay short")
	}
	if res.Live != 0 {
		t.Errorf("live views = %d, want 0", res.Live)
	}
}
