package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trialOf(timings map[string]int64, order []string, info ...string) *Trial {
	t := newTrial()
	for _, key := range order {
		t.Timings.Set(key, timings[key])
	}
	for i := 0; i+1 < len(info); i += 2 {
		t.Info.Set(info[i], info[i+1])
	}
	return t
}

func TestReduce(t *testing.T) {
	order := []string{"DECODE", "COMPRESS", TotalClientTime}
	trials := []*Trial{
		trialOf(map[string]int64{"DECODE": 10, "COMPRESS": 3, TotalClientTime: 20}, order, "Rows", "512"),
		trialOf(map[string]int64{"DECODE": 20, "COMPRESS": 4, TotalClientTime: 25}, order, "Rows", "512"),
		trialOf(map[string]int64{"DECODE": 15, "COMPRESS": 4, TotalClientTime: 30}, order, "Rows", "512"),
	}

	agg, err := Reduce(trials)
	require.NoError(t, err)

	assert.Equal(t, order, agg.Averages.Keys())

	decode, _ := agg.Averages.Get("DECODE")
	assert.InDelta(t, 15.0, decode, 1e-9)
	compress, _ := agg.Averages.Get("COMPRESS")
	assert.InDelta(t, 11.0/3.0, compress, 1e-9)

	total, _ := agg.Totals.Get(TotalClientTime)
	assert.Equal(t, int64(75), total)

	low, _ := agg.Low.Get("DECODE")
	high, _ := agg.High.Get("DECODE")
	assert.Equal(t, int64(10), low)
	assert.Equal(t, int64(20), high)

	rows, _ := agg.Info.Get("Rows")
	assert.Equal(t, "512", rows)
}

func TestReduce_SingleTrial(t *testing.T) {
	trial := trialOf(map[string]int64{"DECODE": 7, TotalClientTime: 9}, []string{"DECODE", TotalClientTime})

	agg, err := Reduce([]*Trial{trial})
	require.NoError(t, err)

	decode, _ := agg.Averages.Get("DECODE")
	assert.InDelta(t, 7.0, decode, 1e-9)
	assert.Equal(t, 0, agg.Info.Len())
}

func TestReduce_Empty(t *testing.T) {
	_, err := Reduce(nil)
	assert.Error(t, err)
}

func TestReduce_IncompatibleTrials(t *testing.T) {
	tests := []struct {
		name       string
		second     *Trial
		missing    []string
		unexpected []string
	}{
		{
			name:    "missing key",
			second:  trialOf(map[string]int64{TotalClientTime: 4}, []string{TotalClientTime}),
			missing: []string{"DECODE"},
		},
		{
			name:       "extra key",
			second:     trialOf(map[string]int64{"DECODE": 1, "ENCODE": 2, TotalClientTime: 4}, []string{"DECODE", "ENCODE", TotalClientTime}),
			unexpected: []string{"ENCODE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := trialOf(map[string]int64{"DECODE": 1, TotalClientTime: 3}, []string{"DECODE", TotalClientTime})

			_, err := Reduce([]*Trial{first, tt.second})

			var incompatible *IncompatibleTrialsError
			require.ErrorAs(t, err, &incompatible)
			assert.Equal(t, 1, incompatible.Trial)
			assert.Equal(t, tt.missing, incompatible.Missing)
			assert.Equal(t, tt.unexpected, incompatible.Unexpected)
			assert.Contains(t, err.Error(), "incompatible successive trials")
		})
	}
}

func TestReduce_KeyOrderDoesNotMatter(t *testing.T) {
	first := trialOf(map[string]int64{"A": 1, "B": 2}, []string{"A", "B"})
	second := trialOf(map[string]int64{"A": 3, "B": 4}, []string{"B", "A"})

	agg, err := Reduce([]*Trial{first, second})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, agg.Averages.Keys())
}

func TestNewCase(t *testing.T) {
	spec := CaseSpec{Instance: "I1", Frame: 0, Quality: QualityHigh, Comment: Comment{"ct", "high"}, Gzip: true}
	trial := trialOf(map[string]int64{"DECODE": 4}, []string{"DECODE"}, "Rows", "1")

	c, err := NewCase(spec, spec.Path(""), []*Trial{trial})
	require.NoError(t, err)

	assert.Equal(t, 1, c.TrialCount())
	assert.True(t, c.Gzip())
	assert.Equal(t, "(ct, high)", c.Comment().String())
	assert.Equal(t, "/osimis-viewer/images/I1/0/high-quality", c.Path)
	assert.Same(t, c.Aggregate().Averages, c.Averages())
}

func TestCaseSpec_Path(t *testing.T) {
	spec := CaseSpec{Instance: "abc-123", Frame: 4, Quality: QualityPixelData}

	assert.Equal(t, "/osimis-viewer/images/abc-123/4/pixeldata-quality", spec.Path(""))
	assert.Equal(t, "/viewer/images/abc-123/4/pixeldata-quality", spec.Path("/viewer/images/"))
}

func TestCaseSpec_Validate(t *testing.T) {
	valid := CaseSpec{Instance: "I1", Frame: 0, Quality: QualityLow}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*CaseSpec)
	}{
		{name: "empty instance", mutate: func(s *CaseSpec) { s.Instance = " " }},
		{name: "slash in instance", mutate: func(s *CaseSpec) { s.Instance = "a/b" }},
		{name: "negative frame", mutate: func(s *CaseSpec) { s.Frame = -1 }},
		{name: "unknown quality", mutate: func(s *CaseSpec) { s.Quality = "ultra-quality" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			assert.Error(t, spec.Validate())
		})
	}
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    Quality
		wantErr bool
	}{
		{in: "low", want: QualityLow},
		{in: "Medium", want: QualityMedium},
		{in: "high-quality", want: QualityHigh},
		{in: " pixeldata ", want: QualityPixelData},
		{in: "ultra", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuality(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComment_String(t *testing.T) {
	assert.Equal(t, "()", Comment{}.String())
	assert.Equal(t, "(MR, 8 bits)", Comment{"MR", "8 bits"}.String())
}
