package corpus

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) Corpus {
	c := make(Corpus, n)
	for i := range c {
		c[i] = Method{"m", string(rune('a' + i%26)), strings.Repeat("x", i)}
	}
	return c
}

func TestSplitEvery(t *testing.T) {
	c := numbered(11)

	split, err := SplitEvery(c, 5)
	require.NoError(t, err)

	// indices 0, 5, 10 go to held-out
	require.Len(t, split.Heldout, 3)
	require.Len(t, split.Train, 8)
	assert.Equal(t, c[0], split.Heldout[0])
	assert.Equal(t, c[5], split.Heldout[1])
	assert.Equal(t, c[10], split.Heldout[2])
	assert.Equal(t, c[1], split.Train[0])
	assert.Equal(t, c[9], split.Train[7])
}

func TestSplitEveryIsReproducible(t *testing.T) {
	c := numbered(37)
	first, err := SplitEvery(c, 5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := SplitEvery(c, 5)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSplitEveryInvalidStride(t *testing.T) {
	_, err := SplitEvery(numbered(3), 0)
	assert.ErrorIs(t, err, ErrInvalidStride)
}

func TestSplitEveryOneRoutesEverythingToHeldout(t *testing.T) {
	split, err := SplitEvery(numbered(4), 1)
	require.NoError(t, err)
	assert.Len(t, split.Heldout, 4)
	assert.Empty(t, split.Train)
}

func TestSplitRandom(t *testing.T) {
	c := numbered(100)

	a, err := SplitRandom(c, 0.2, 42)
	require.NoError(t, err)
	b, err := SplitRandom(c, 0.2, 42)
	require.NoError(t, err)

	assert.Equal(t, a, b, "same seed must give the same partition")
	assert.Len(t, a.Heldout, 20)
	assert.Len(t, a.Train, 80)
	assert.Equal(t, len(c), len(a.Train)+len(a.Heldout))

	other, err := SplitRandom(c, 0.2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, a.Heldout, other.Heldout)
}

func TestSplitRandomInvalidFraction(t *testing.T) {
	for _, f := range []float64{0, 1, -0.5, 1.5} {
		_, err := SplitRandom(numbered(3), f, 1)
		assert.ErrorIs(t, err, ErrInvalidFraction, "fraction %v", f)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []Method{
		{},
		{""},
		{"a", "b"},
		{"ab"},
		{"a,b", "c"},
		{"a", "b,c"},
	}
	seen := map[string]int{}
	for i, m := range tests {
		key := m.Key()
		got, err := DecodeKey(key)
		require.NoError(t, err)
		assert.True(t, m.Equal(got), "round trip of %q", m)
		if j, dup := seen[key]; dup {
			t.Errorf("methods %q and %q share a key", tests[j], m)
		}
		seen[key] = i
	}
}

func TestDecodeKeyMalformed(t *testing.T) {
	_, err := DecodeKey("")
	assert.Error(t, err)
	_, err = DecodeKey("\x02\x01a")
	assert.Error(t, err)
}

func TestReadCSVSkipsNameColumn(t *testing.T) {
	in := "getName,public,String,getName\nempty\nsetX,void,x\n"
	c, err := ReadCSV(strings.NewReader(in), 1)
	require.NoError(t, err)
	require.Len(t, c, 3)
	assert.Equal(t, Method{"public", "String", "getName"}, c[0])
	assert.Empty(t, c[1])
	assert.Equal(t, Method{"void", "x"}, c[2])
}

func TestCSVRoundTrip(t *testing.T) {
	c := Corpus{{"a", "b,c", "\"q\""}, {"x"}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, c))

	got, err := ReadCSV(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestCSVRoundTripKeepsEmptyMethods(t *testing.T) {
	c := Corpus{{"a", "b"}, {}, {"", "x"}, {"c"}, {}}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, c))

	got, err := ReadCSV(&buf, 0)
	require.NoError(t, err)
	require.Len(t, got, len(c))
	assert.Equal(t, Method{"a", "b"}, got[0])
	assert.Empty(t, got[1])
	assert.Equal(t, Method{"", "x"}, got[2])
	assert.Equal(t, Method{"c"}, got[3])
	assert.Empty(t, got[4])

	want, err := SplitEvery(c, 2)
	require.NoError(t, err)
	after, err := SplitEvery(got, 2)
	require.NoError(t, err)
	assert.Equal(t, len(want.Heldout), len(after.Heldout))
	assert.Equal(t, want.Heldout[2], after.Heldout[2])
}

func TestWriteCSVRejectsBlankTokenMethods(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, Corpus{{"a"}, {""}})
	assert.ErrorIs(t, err, ErrUnrepresentable)
	assert.Zero(t, buf.Len())

	path := filepath.Join(t.TempDir(), "out.csv")
	err = WriteFile(path, Corpus{{"", ""}})
	assert.ErrorIs(t, err, ErrUnrepresentable)
	assert.False(t, fileExists(path))

	jsonl := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, WriteFile(jsonl, Corpus{{""}, {}}))
	got, err := ReadFile(jsonl, 0)
	require.NoError(t, err)
	assert.Equal(t, Corpus{{""}, {}}, got)
}

func TestReadEmptyFileIsNotNil(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"empty.csv", "empty.jsonl"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, nil, 0644))

		c, err := ReadFile(path, 0)
		require.NoError(t, err, name)
		assert.NotNil(t, c, name)
		assert.Empty(t, c, name)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestReadJSONLSkipsMalformed(t *testing.T) {
	in := `["a","b"]
not json
[]

["c"]
`
	c, err := ReadJSONL(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, c, 3)
	assert.Equal(t, Method{"a", "b"}, c[0])
	assert.Empty(t, c[1])
	assert.Equal(t, Method{"c"}, c[2])
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("train.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("/tmp/x.jsonl")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONL, f)

	_, err = DetectFormat("model.msgpack")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	info, ok := GetFormatInfo(FormatJSONL)
	require.True(t, ok)
	assert.Contains(t, info.Extensions, ".jsonl")
	_, ok = GetFormatInfo(FormatUnknown)
	assert.False(t, ok)
}

func TestLoadShards(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteFile(filepath.Join(dir, "b.jsonl"), Corpus{{"c"}}))
	require.NoError(t, WriteFile(filepath.Join(dir, "a.csv"), Corpus{{"a"}, {"b"}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0644))

	shards, err := LoadShards(context.Background(), dir, 0)
	require.NoError(t, err)
	require.Len(t, shards, 2)
	assert.Equal(t, Corpus{{"a"}, {"b"}}, shards[0])
	assert.Equal(t, Corpus{{"c"}}, shards[1])
	assert.Equal(t, Corpus{{"a"}, {"b"}, {"c"}}, Concat(shards))
}

func TestLoadShardsEmptyDir(t *testing.T) {
	_, err := LoadShards(context.Background(), t.TempDir(), 0)
	assert.Error(t, err)
}

func TestNonEmpty(t *testing.T) {
	c := Corpus{{}, {"a"}, nil, {"b", "c"}}
	assert.Equal(t, Corpus{{"a"}, {"b", "c"}}, c.NonEmpty())
	assert.NotNil(t, Corpus(nil).NonEmpty())
}

func TestDedupe(t *testing.T) {
	c := Corpus{{"a", "b"}, {"ab"}, {"a", "b"}, {}, {}}
	assert.Equal(t, Corpus{{"a", "b"}, {"ab"}, {}}, Dedupe(c))
}

func TestASCIIOnly(t *testing.T) {
	c := Corpus{{"int", "x"}, {"String", "\"héllo\""}, {"y"}}
	assert.Equal(t, Corpus{{"int", "x"}, {"y"}}, ASCIIOnly(c))
}

func TestTrimOutliers(t *testing.T) {
	var c Corpus
	for n := 1; n <= 100; n++ {
		c = append(c, make(Method, n))
	}

	got, err := TrimOutliers(c, 5, 95)
	require.NoError(t, err)
	for _, m := range got {
		assert.GreaterOrEqual(t, len(m), 5)
		assert.LessOrEqual(t, len(m), 96)
	}
	assert.Less(t, len(got), len(c))
	assert.Greater(t, len(got), 80)

	all, err := TrimOutliers(c, 0, 100)
	require.NoError(t, err)
	assert.Len(t, all, 100)

	_, err = TrimOutliers(c, 60, 40)
	assert.ErrorIs(t, err, ErrInvalidPercentiles)
}

func TestNormalizeIdentifiers(t *testing.T) {
	c := Corpus{{"public", "int", "getX", "(", ")", "{", "return", "this", ".", "x_1", ";", "}", "42", "null"}}
	got := NormalizeIdentifiers(c, "")
	want := Method{"public", "int", DefaultIdentifierPlaceholder, "(", ")", "{", "return", "this", ".", DefaultIdentifierPlaceholder, ";", "}", "42", "null"}
	assert.Equal(t, want, got[0])
	assert.Equal(t, "getX", c[0][2], "input must not be modified")
}

func TestPreprocessApply(t *testing.T) {
	c := Corpus{{"a", "b"}, {"a", "b"}, {"ü"}, {"foo", "1"}}
	got, err := Preprocess{Dedupe: true, ASCIIOnly: true, NormalizeIdentifiers: true, Placeholder: "ID"}.Apply(c)
	require.NoError(t, err)
	assert.Equal(t, Corpus{{"ID", "ID"}, {"ID", "1"}}, got)
}
