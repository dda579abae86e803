package refdata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockreplay/internal/common"
	"github.com/bobmcallan/stockreplay/internal/models"
)

const sampleDataset = `{
  "2330": {"symbol": "2330.TW", "name": "台積電", "industry": "半導體業"},
  "1301": {"symbol": "1301.TW", "name": "台塑", "industry": "塑膠工業"},
  "6505": {"name": "台塑化", "industry": "油電燃氣業"},
  "2317": {"code": "2317", "symbol": "2317.TW", "name": "鴻海"},
  "8299": {"symbol": "8299.TWO", "name": "群聯", "industry": "半導體業"},
  "1590": {"symbol": "1590.TW", "name": "亞德客-KY", "industry": "電機機械"}
}`

func newTestStore(t *testing.T, data string) *Store {
	t.Helper()
	return NewStore(BytesSource("test.json", []byte(data)), common.NewSilentLogger())
}

func TestGetByCode_StripsSuffix(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	for _, input := range []string{"2330", "2330.TW", "2330.tw", " 2330.TW ", "2330.TWO"} {
		rec, ok, err := store.GetByCode(input)
		require.NoError(t, err, input)
		require.True(t, ok, input)
		assert.Equal(t, "2330", rec.Code, input)
		assert.Equal(t, "台積電", rec.Name, input)
	}

	rec, ok, err := store.GetByCode("8299.TWO")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "8299.TWO", rec.Symbol)
}

func TestGetByCode_MissingIsNotAnError(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	rec, ok, err := store.GetByCode("9999")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.StockRecord{}, rec)

	// prefix of a real code is not a match
	_, ok, _ = store.GetByCode("233")
	assert.False(t, ok)
}

func TestLoad_FillsDefaults(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	rec, ok, err := store.GetByCode("6505")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "6505.TW", rec.Symbol)

	rec, _, _ = store.GetByCode("2317")
	assert.Equal(t, models.DefaultIndustry, rec.Industry)
}

func TestSearchByName_ExactFirstThenTableOrder(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	results, err := store.SearchByName("台塑", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "1301", results[0].Code)
	assert.Equal(t, "6505", results[1].Code)

	// exact match is promoted ahead of earlier partial matches
	results, err = store.SearchByName("台塑化", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "6505", results[0].Code)

	results, err = store.SearchByName("台", 10)
	require.NoError(t, err)
	codes := make([]string, len(results))
	for i, r := range results {
		codes[i] = r.Code
	}
	assert.Equal(t, []string{"2330", "1301", "6505"}, codes)
}

func TestSearchByName_LimitAndContains(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	results, err := store.SearchByName("台", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, strings.Contains(r.Name, "台"), r.Name)
	}
}

func TestSearchByName_EmptyQuery(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	for _, q := range []string{"", "   "} {
		results, err := store.SearchByName(q, 10)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
}

func TestSearchByName_CaseInsensitiveLatin(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	results, err := store.SearchByName("ky", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1590", results[0].Code)
}

func TestRecords_ReturnsCopyInOrder(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	records, err := store.Records()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, "2330", records[0].Code)
	assert.Equal(t, "1590", records[5].Code)

	records[0].Name = "changed"
	again, _ := store.Records()
	assert.Equal(t, "台積電", again[0].Name)
	assert.Equal(t, 6, store.Len())
}

func TestContains(t *testing.T) {
	store := newTestStore(t, sampleDataset)

	assert.True(t, store.Contains("2317"))
	assert.True(t, store.Contains("2317.TW"))
	assert.False(t, store.Contains("9999"))
}

func TestInitialize_MalformedDataset(t *testing.T) {
	cases := map[string]string{
		"array":         `[{"code": "2330"}]`,
		"missing name":  `{"2330": {"symbol": "2330.TW"}}`,
		"not object":    `{"2330": "台積電"}`,
		"code mismatch": `{"2330": {"code": "2317", "name": "台積電"}}`,
		"duplicate":     `{"2330": {"name": "台積電"}, "2330": {"name": "台積電"}}`,
		"truncated":     `{"2330": {"name": "台積電"}`,
		"empty":         ``,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t, data)

			err := store.Initialize()
			require.Error(t, err)
			var dsErr *DatasetError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, "test.json", dsErr.Path)

			_, _, err = store.GetByCode("2330")
			assert.Error(t, err)
			assert.False(t, store.Contains("2330"))
			assert.Equal(t, 0, store.Len())
		})
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	store := NewStore(FileSource(path), nil)

	err := store.Initialize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, path, store.Path())
}

func TestFileSource_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocks.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0644))

	store := NewStore(FileSource(path), nil)
	require.NoError(t, store.Initialize())
	assert.Equal(t, 6, store.Len())
}

func TestEmbeddedSource_Loads(t *testing.T) {
	store := NewStore(EmbeddedSource(), nil)
	require.NoError(t, store.Initialize())

	rec, ok, err := store.GetByCode("2330")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.StockRecord{Code: "2330", Symbol: "2330.TW", Name: "台積電", Industry: "半導體業"}, rec)

	for _, code := range DefaultBlacklist {
		assert.False(t, store.Contains(code), "blacklisted code %s in embedded dataset", code)
	}
}

func TestInitialize_ConcurrentFirstAccess(t *testing.T) {
	var reads int
	var mu sync.Mutex
	src := Source{name: "counting", read: func() ([]byte, error) {
		mu.Lock()
		reads++
		mu.Unlock()
		return []byte(sampleDataset), nil
	}}
	store := NewStore(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.GetByCode("2330")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, reads)
}
