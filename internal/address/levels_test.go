package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardizeFullAddressWithPOI(t *testing.T) {
	text := "广东省广州市天河区环市大道中8号保利小区3栋一单元8层801房"
	entities := map[string]string{
		"prov":     "广东省",
		"city":     "广州市",
		"district": "天河区",
		"road":     "环市大道中",
		"roadno":   "8号",
		"poi":      "保利小区",
		"houseno":  "3栋",
		"cellno":   "一单元",
		"floorno":  "8层",
		"roomno":   "801房",
	}

	levels := Standardize(entities, text)

	assert.Equal(t, text, levels.OriginalText)
	assert.Equal(t, "广东省", levels.Level1)
	assert.Equal(t, "广州市", levels.Level2)
	assert.Equal(t, "天河区", levels.Level3)
	assert.Equal(t, "", levels.Level4)
	assert.Equal(t, "环市大道中", levels.Level5)
	assert.Equal(t, "8号", levels.Level6)
	assert.Equal(t, "保利小区", levels.Level7)
	assert.Equal(t, "3栋", levels.Level8)
	assert.Equal(t, "一单元", levels.Level9)
	assert.Equal(t, "8层", levels.Level10)
	assert.Equal(t, "801房", levels.Level11)
	assert.Equal(t, "", levels.Remark)
}

func TestStandardizeWithoutPOI(t *testing.T) {
	text := "天河区中山大道西55号3栋2单元301"
	entities := map[string]string{
		"district": "天河区",
		"road":     "中山大道西",
		"roadno":   "55号",
		"houseno":  "3栋",
		"cellno":   "2单元",
		"roomno":   "301",
	}

	levels := Standardize(entities, text)

	assert.Equal(t, "天河区", levels.Level3)
	assert.Equal(t, "中山大道西", levels.Level5)
	assert.Equal(t, "55号", levels.Level6)
	assert.Equal(t, "", levels.Level7)
	assert.Equal(t, "3栋", levels.Level8)
	assert.Equal(t, "2单元", levels.Level9)
	assert.Equal(t, "", levels.Level10)
	assert.Equal(t, "301", levels.Level11)
}

func TestStandardizeDefaultProvince(t *testing.T) {
	text := "广州市珠村"
	entities := map[string]string{
		"city": "广州市",
		"poi":  "珠村",
	}

	levels := Standardize(entities, text)

	assert.Equal(t, "广东省", levels.Level1)
	assert.Equal(t, "广州市", levels.Level2)
	assert.Equal(t, "珠村", levels.Level7)
}

func TestStandardizeRemarkKeepsUnclaimedText(t *testing.T) {
	text := "广州市附近的某仓库"
	entities := map[string]string{
		"city": "广州市",
	}

	levels := Standardize(entities, text)
	assert.Equal(t, "附近的某仓库", levels.Remark)
}

func TestStandardizeRepeatedValuesClaimSeparateSpans(t *testing.T) {
	// "8号" appears twice; the roadno claims the first occurrence and the
	// houseno resolves to the second.
	text := "天河区体育东路8号祈福新村8号楼"
	entities := map[string]string{
		"district": "天河区",
		"road":     "体育东路",
		"roadno":   "8号",
		"poi":      "祈福新村",
		"houseno":  "8号楼",
	}

	levels := Standardize(entities, text)

	assert.Equal(t, "体育东路", levels.Level5)
	assert.Equal(t, "8号", levels.Level6)
	assert.Equal(t, "祈福新村", levels.Level7)
	assert.Equal(t, "8号楼", levels.Level8)
}

func TestStandardizeMultiValueEntity(t *testing.T) {
	// Two POI spans; the first anchors level 7 and the second becomes the
	// annex level.
	text := "番禺区市广路8号祈福新村C区九街98号"
	entities := map[string]string{
		"district": "番禺区",
		"road":     "市广路",
		"roadno":   "8号,98号",
		"poi":      "祈福新村,C区",
	}

	levels := Standardize(entities, text)

	assert.Equal(t, "番禺区", levels.Level3)
	assert.Equal(t, "市广路", levels.Level5)
	assert.Equal(t, "8号", levels.Level6)
	assert.Equal(t, "祈福新村", levels.Level7)
	assert.NotEmpty(t, levels.Level8)
}

func TestStandardizeNoEntities(t *testing.T) {
	text := "完全无法识别的文本"
	levels := Standardize(map[string]string{}, text)

	assert.Equal(t, "广东省", levels.Level1)
	assert.Equal(t, text, levels.Remark)
}
