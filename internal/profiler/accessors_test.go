package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, data string) Value {
	t.Helper()
	doc, err := Decode([]byte(data))
	require.NoError(t, err)
	return doc
}

func TestFirstMatchingValue(t *testing.T) {
	doc := mustDecode(t, `{"SPHardwareDataType":[{"serial_number":"C02ABC123"}]}`)

	serial, ok := FirstMatchingValue(doc, "serial_number")
	require.True(t, ok)
	assert.Equal(t, "C02ABC123", serial)

	_, ok = FirstMatchingValue(doc, "nonexistent_key")
	assert.False(t, ok)
}

func TestFirstMatchingValueCaseInsensitiveSubstring(t *testing.T) {
	doc := mustDecode(t, `{"SPHardwareDataType":[{"machine_model":"Mac14,2","Platform_Serial_Number":"XYZ"}]}`)

	serial, ok := FirstMatchingValue(doc, "SERIAL")
	require.True(t, ok)
	assert.Equal(t, "XYZ", serial)
}

func TestFirstMatchingValueFirstMatchWinsInSourceOrder(t *testing.T) {
	doc := mustDecode(t, `{
		"SPDisplaysDataType": [
			{"sppci_model": "Apple M2", "spdisplays_ndrvs": [{"_name": "Built-in", "sppci_model": "nested"}]},
			{"sppci_model": "Second GPU"}
		]
	}`)

	for i := 0; i < 5; i++ {
		model, ok := FirstMatchingValue(doc, "sppci_model")
		require.True(t, ok)
		assert.Equal(t, "Apple M2", model)
	}
}

func TestFirstMatchingValueSkipsNonStringMatches(t *testing.T) {
	doc := mustDecode(t, `{"items":[{"serial_count": 3, "nested": [{"serial": "ABC"}]}]}`)

	value, ok := FirstMatchingValue(doc, "serial")
	require.True(t, ok)
	assert.Equal(t, "ABC", value)
}

func TestFirstMatchingValueDepthBound(t *testing.T) {
	deep := `{"a":[[[[[[[[[[{"serial":"too deep"}]]]]]]]]]]}`
	_, ok := FirstMatchingValue(mustDecode(t, deep), "serial")
	assert.False(t, ok)
}

func TestArrayAt(t *testing.T) {
	doc := mustDecode(t, `{"SPNVMeDataType":[{"_name":"ctrl"}],"scalar":"x"}`)

	items, ok := ArrayAt(doc, "SPNVMeDataType")
	require.True(t, ok)
	assert.Len(t, items, 1)

	_, ok = ArrayAt(doc, "scalar")
	assert.False(t, ok)
	_, ok = ArrayAt(doc, "missing")
	assert.False(t, ok)
	_, ok = ArrayAt(StringValue("not an object"), "SPNVMeDataType")
	assert.False(t, ok)
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input    string
		expected uint64
		ok       bool
	}{
		{"123,456 bytes", 123456, true},
		{"12 KB", 0, false},
		{"500.28 GB (500,277,790,720 bytes)", 500277790720, true},
		{"0 bytes", 0, true},
		{"", 0, false},
		{"bytes", 0, false},
		{"99999999999999999999999 bytes", 0, false},
		{"42 bytesize", 0, false},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, ok := ParseByteSize(test.input)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestSizeOfPrefersNumericField(t *testing.T) {
	entry := mustDecode(t, `{"size":"1 TB (1,000,000,000,000 bytes)","size_in_bytes":999}`)
	size, ok := SizeOf(entry)
	require.True(t, ok)
	assert.Equal(t, uint64(999), size)

	entry = mustDecode(t, `{"size":"1 TB (1,000,000,000,000 bytes)"}`)
	size, ok = SizeOf(entry)
	require.True(t, ok)
	assert.Equal(t, uint64(1000000000000), size)
}

func TestSizeOfIgnoresOutOfRangeNumbers(t *testing.T) {
	tests := []struct {
		name   string
		entry  string
		want   uint64
		wantOK bool
	}{
		{"too large falls back to text", `{"size":"2 TB (2,000,000,000,000 bytes)","size_in_bytes":1e20}`, 2000000000000, true},
		{"exactly two to the 64", `{"size_in_bytes":18446744073709551616}`, 0, false},
		{"negative", `{"size_in_bytes":-5}`, 0, false},
		{"largest exact float below the limit", `{"size_in_bytes":18446744073709549568}`, 18446744073709549568, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			size, ok := SizeOf(mustDecode(t, test.entry))
			assert.Equal(t, test.wantOK, ok)
			assert.Equal(t, test.want, size)
		})
	}
}

func TestDecodePreservesKeyOrder(t *testing.T) {
	doc := mustDecode(t, `{"z":1,"a":true,"m":null,"s":"x","arr":[1,"two"]}`)

	members, ok := doc.Members()
	require.True(t, ok)
	keys := make([]string, 0, len(members))
	for _, member := range members {
		keys = append(keys, member.Key)
	}
	assert.Equal(t, []string{"z", "a", "m", "s", "arr"}, keys)

	n, ok := members[0].Value.AsNumber()
	assert.True(t, ok)
	assert.Equal(t, float64(1), n)
	b, ok := members[1].Value.AsBool()
	assert.True(t, ok && b)
	assert.Equal(t, Null, members[2].Value.Kind())
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode([]byte(`{} {}`))
	assert.Error(t, err)
}
