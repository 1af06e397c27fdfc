package jsonsurface

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forPelevin/cuesync/internal/types"
)

func decodeAll(t *testing.T, b []byte) []Event {
	t.Helper()
	var out []Event
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		out = append(out, ev)
	}
	return out
}

func TestSurface_WritesOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(100, 0)
	s := New(&buf, Options{Now: func() time.Time { return now }})

	s.SetCues([]types.Cue{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}, 0)
	now = now.Add(250 * time.Millisecond)
	s.Start(7300)
	s.Pause()
	s.SetOcclusion(types.OcclusionFrame{Mode: types.OcclusionBand, Band: &types.Band{Top: 0.5, Bottom: 1},
		Instructions: []types.DrawInstruction{{Kind: types.DrawClipBand}}})
	s.Clear()

	evs := decodeAll(t, buf.Bytes())
	require.Len(t, evs, 5)
	require.Equal(t, "set_cues", evs[0].Op)
	require.Equal(t, 2, *evs[0].Count)
	require.Equal(t, int64(0), *evs[0].OriginMs)
	require.Empty(t, evs[0].Cues, "cue bodies are omitted unless Full")
	require.Equal(t, int64(7300), *evs[1].PosMs)
	require.Equal(t, int64(250), evs[1].AtMs)
	require.Equal(t, "band", evs[3].Mode)
	require.InDelta(t, 0.5, evs[3].Occlusion.Band.Top, 1e-9)
	require.Equal(t, "clear", evs[4].Op)
}

func TestSurface_Full(t *testing.T) {
	var buf bytes.Buffer
	s := New(&buf, Options{Full: true})
	s.SetCues([]types.Cue{{ID: 1, Text: "hello", Lane: types.LaneTop}}, 0)
	s.SetAdvancedCues([]types.AdvancedCue{{ID: "cmd_1", Text: "sub"}})

	evs := decodeAll(t, buf.Bytes())
	require.Len(t, evs, 2)
	require.Equal(t, types.LaneTop, evs[0].Cues[0].Lane)
	require.Equal(t, "cmd_1", evs[1].Advanced[0].ID)
}

type failWriter struct{ n int }

func (w *failWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("closed pipe")
}

func TestSurface_StopsAfterWriteError(t *testing.T) {
	w := &failWriter{}
	s := New(w, Options{})
	s.Pause()
	s.Clear()
	require.Error(t, s.Err())
	require.Equal(t, 1, w.n)
}
