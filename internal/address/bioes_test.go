package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEntities(t *testing.T) {
	tokens := []string{"广", "东", "省", "广", "州", "市", "7", "号"}
	tags := []string{"B-prov", "I-prov", "E-prov", "B-city", "I-city", "E-city", "B-roadno", "E-roadno"}

	entities, err := ExtractEntities(tokens, tags)
	require.NoError(t, err)

	assert.Equal(t, []string{"广东省"}, entities["prov"])
	assert.Equal(t, []string{"广州市"}, entities["city"])
	assert.Equal(t, []string{"7号"}, entities["roadno"])
}

func TestExtractEntitiesSingleAndOutside(t *testing.T) {
	tokens := []string{"东", "路", "x", "村"}
	tags := []string{"B-road", "E-road", "O", "S-community"}

	entities, err := ExtractEntities(tokens, tags)
	require.NoError(t, err)

	assert.Equal(t, []string{"东路"}, entities["road"])
	assert.Equal(t, []string{"村"}, entities["community"])
}

func TestExtractEntitiesMultipleSameType(t *testing.T) {
	tokens := []string{"a", "b", "c", "d"}
	tags := []string{"B-poi", "E-poi", "B-poi", "E-poi"}

	entities, err := ExtractEntities(tokens, tags)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "cd"}, entities["poi"])
}

func TestExtractEntitiesUnterminatedEntityIsFlushed(t *testing.T) {
	tokens := []string{"天", "河"}
	tags := []string{"B-district", "I-district"}

	entities, err := ExtractEntities(tokens, tags)
	require.NoError(t, err)
	assert.Equal(t, []string{"天河"}, entities["district"])
}

func TestExtractEntitiesStrayContinuationIsIgnored(t *testing.T) {
	tokens := []string{"a", "b", "c"}
	tags := []string{"O", "I-road", "E-road"}

	entities, err := ExtractEntities(tokens, tags)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestExtractEntitiesLengthMismatch(t *testing.T) {
	_, err := ExtractEntities([]string{"a", "b"}, []string{"O"})
	assert.Error(t, err)
}

func TestJoinEntities(t *testing.T) {
	joined := JoinEntities(map[string][]string{
		"poi":  {"祈福新村", "C区"},
		"prov": {"广东省"},
	})

	assert.Equal(t, "祈福新村, C区", joined["poi"])
	assert.Equal(t, "广东省", joined["prov"])
}
