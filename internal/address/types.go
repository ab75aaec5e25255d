// Package address implements decoding and standardization of Chinese address
// parsing results.
//
// The package covers the post-processing side of the MGeo token-classification
// model: turning character tokens and BIOES tags into typed entities, and
// projecting those entities onto the 11-level standardized address format used
// downstream.
package address

// Entity type keys produced by the MGeo NER model.
const (
	TypeProv         = "prov"
	TypeCity         = "city"
	TypeDistrict     = "district"
	TypeTown         = "town"
	TypeCommunity    = "community"
	TypeRoad         = "road"
	TypeRoadNo       = "roadno"
	TypePOI          = "poi"
	TypeSubPOI       = "subpoi"
	TypeHouseNo      = "houseno"
	TypeCellNo       = "cellno"
	TypeFloorNo      = "floorno"
	TypeRoomNo       = "roomno"
	TypeDevZone      = "devzone"
	TypeIntersection = "intersection"
	TypeAssist       = "assist"
	TypeDistance     = "distance"
	TypeVillageGroup = "village_group"
	TypeDirection    = "direction"
)

// DisplayNames maps entity type keys to their Chinese display names.
var DisplayNames = map[string]string{
	TypeProv:         "省份",
	TypeCity:         "城市",
	TypeDistrict:     "区县",
	TypeTown:         "街道/镇",
	TypeCommunity:    "社区/村",
	TypeRoad:         "道路",
	TypeRoadNo:       "门牌号",
	TypePOI:          "兴趣点",
	TypeSubPOI:       "子兴趣点",
	TypeHouseNo:      "楼栋号",
	TypeCellNo:       "单元号",
	TypeFloorNo:      "楼层",
	TypeRoomNo:       "房间号",
	TypeDevZone:      "开发区",
	TypeIntersection: "路口",
	TypeAssist:       "辅助信息",
	TypeDistance:     "距离",
	TypeVillageGroup: "村组",
}

// PriorityOrder lists entity types from the coarsest administrative division
// down to room level. Formatting and span claiming iterate types in this
// order so results are deterministic.
var PriorityOrder = []string{
	TypeProv, TypeCity, TypeDistrict, TypeTown, TypeCommunity, TypeDevZone,
	TypeRoad, TypeRoadNo, TypeIntersection, TypePOI, TypeSubPOI,
	TypeHouseNo, TypeCellNo, TypeFloorNo, TypeRoomNo, TypeAssist, TypeDistance,
	TypeVillageGroup, TypeDirection,
}

// DisplayName returns the Chinese display name for an entity type, falling
// back to the key itself for unknown types.
func DisplayName(entityType string) string {
	if name, ok := DisplayNames[entityType]; ok {
		return name
	}
	return entityType
}

// Levels is the 11-level standardized address representation.
//
// Level semantics: 1 province, 2 city, 3 district, 4 town, 5 road/direction,
// 6 road number, 7 POI/residential compound, 8 POI annex or building number,
// 9 unit number, 10 floor, 11 room number. Text the classifier could not
// attribute to any level ends up in Remark.
type Levels struct {
	OriginalText string `json:"original_text"`
	Level1       string `json:"level1"`
	Level2       string `json:"level2"`
	Level3       string `json:"level3"`
	Level4       string `json:"level4"`
	Level5       string `json:"level5"`
	Level6       string `json:"level6"`
	Level7       string `json:"level7"`
	Level8       string `json:"level8"`
	Level9       string `json:"level9"`
	Level10      string `json:"level10"`
	Level11      string `json:"level11"`
	Remark       string `json:"remark"`
}
