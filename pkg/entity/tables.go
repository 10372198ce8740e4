package entity

// Reference tables for the pattern extractors. Static and read-only at
// runtime, so they are safe for unsynchronized concurrent use.

// BookingRefPrefix is the fixed prefix of internally issued booking
// references (prefix + at least seven digits). Flight-number matching
// must never consume it.
const BookingRefPrefix = "TRV"

// airlineCodes validates the two-letter code of a flight number.
var airlineCodes = map[string]string{
	"BR": "長榮航空",
	"CI": "中華航空",
	"JX": "星宇航空",
	"IT": "台灣虎航",
	"AE": "華信航空",
	"B7": "立榮航空",
	"JL": "日本航空",
	"NH": "全日空",
	"MM": "樂桃航空",
	"KE": "大韓航空",
	"OZ": "韓亞航空",
	"TG": "泰國航空",
	"SQ": "新加坡航空",
	"CX": "國泰航空",
	"EK": "阿聯酋航空",
	"TR": "酷航",
	"VN": "越南航空",
	"PR": "菲律賓航空",
	"UA": "聯合航空",
	"DL": "達美航空",
	"AA": "美國航空",
	"BA": "英國航空",
	"AF": "法國航空",
	"QF": "澳洲航空",
}

// iataCities resolves 3-letter airport codes to the city name used as
// the normalized destination value.
var iataCities = map[string]string{
	"TPE": "台北",
	"TSA": "台北",
	"KHH": "高雄",
	"NRT": "東京",
	"HND": "東京",
	"KIX": "大阪",
	"CTS": "札幌",
	"FUK": "福岡",
	"OKA": "沖繩",
	"ICN": "首爾",
	"GMP": "首爾",
	"PUS": "釜山",
	"BKK": "曼谷",
	"CNX": "清邁",
	"HKT": "普吉島",
	"SIN": "新加坡",
	"KUL": "吉隆坡",
	"HKG": "香港",
	"MFM": "澳門",
	"SGN": "胡志明市",
	"HAN": "河內",
	"DPS": "峇里島",
	"MNL": "馬尼拉",
	"LAX": "洛杉磯",
	"SFO": "舊金山",
	"JFK": "紐約",
	"SEA": "西雅圖",
	"YVR": "溫哥華",
	"LHR": "倫敦",
	"CDG": "巴黎",
	"FRA": "法蘭克福",
	"AMS": "阿姆斯特丹",
	"FCO": "羅馬",
	"SYD": "雪梨",
	"MEL": "墨爾本",
	"AKL": "奧克蘭",
}

// cityNames maps a directly mentioned city (Chinese or Latin spelling)
// to its normalized form. Latin keys are matched case-insensitively.
var cityNames = map[string]string{
	"東京":        "東京",
	"大阪":        "大阪",
	"京都":        "大阪", // closest gateway
	"札幌":        "札幌",
	"北海道":       "札幌",
	"福岡":        "福岡",
	"沖繩":        "沖繩",
	"首爾":        "首爾",
	"釜山":        "釜山",
	"曼谷":        "曼谷",
	"清邁":        "清邁",
	"普吉島":       "普吉島",
	"新加坡":       "新加坡",
	"吉隆坡":       "吉隆坡",
	"香港":        "香港",
	"澳門":        "澳門",
	"河內":        "河內",
	"胡志明市":      "胡志明市",
	"峇里島":       "峇里島",
	"馬尼拉":       "馬尼拉",
	"洛杉磯":       "洛杉磯",
	"舊金山":       "舊金山",
	"紐約":        "紐約",
	"西雅圖":       "西雅圖",
	"溫哥華":       "溫哥華",
	"倫敦":        "倫敦",
	"巴黎":        "巴黎",
	"法蘭克福":      "法蘭克福",
	"阿姆斯特丹":     "阿姆斯特丹",
	"羅馬":        "羅馬",
	"雪梨":        "雪梨",
	"墨爾本":       "墨爾本",
	"奧克蘭":       "奧克蘭",
	"tokyo":     "東京",
	"osaka":     "大阪",
	"sapporo":   "札幌",
	"okinawa":   "沖繩",
	"seoul":     "首爾",
	"busan":     "釜山",
	"bangkok":   "曼谷",
	"singapore": "新加坡",
	"hong kong": "香港",
	"bali":      "峇里島",
	"london":    "倫敦",
	"paris":     "巴黎",
	"rome":      "羅馬",
	"new york":  "紐約",
	"sydney":    "雪梨",
}

// countryKeywords is the destination fallback: a country or region
// mention counts as a destination when no city matched.
var countryKeywords = map[string]string{
	"日本":  "日本",
	"韓國":  "韓國",
	"泰國":  "泰國",
	"越南":  "越南",
	"菲律賓": "菲律賓",
	"印尼":  "印尼",
	"馬來西亞": "馬來西亞",
	"美國":  "美國",
	"加拿大": "加拿大",
	"英國":  "英國",
	"法國":  "法國",
	"德國":  "德國",
	"義大利": "義大利",
	"荷蘭":  "荷蘭",
	"澳洲":  "澳洲",
	"紐西蘭": "紐西蘭",
}

// cabinClasses, directions and seatPreferences are keyword-to-enum
// lookups; Latin keys are matched case-insensitively.
var cabinClasses = map[string]string{
	"經濟艙":             "ECONOMY",
	"豪華經濟艙":           "PREMIUM_ECONOMY",
	"商務艙":             "BUSINESS",
	"頭等艙":             "FIRST",
	"economy":         "ECONOMY",
	"premium economy": "PREMIUM_ECONOMY",
	"business":        "BUSINESS",
	"first class":     "FIRST",
}

var directions = map[string]string{
	"單程":         "ONE_WAY",
	"來回":         "ROUND_TRIP",
	"往返":         "ROUND_TRIP",
	"one way":    "ONE_WAY",
	"one-way":    "ONE_WAY",
	"round trip": "ROUND_TRIP",
	"round-trip": "ROUND_TRIP",
}

var seatPreferences = map[string]string{
	"靠窗":     "WINDOW",
	"窗邊":     "WINDOW",
	"靠走道":    "AISLE",
	"走道":     "AISLE",
	"中間":     "MIDDLE",
	"window": "WINDOW",
	"aisle":  "AISLE",
	"middle": "MIDDLE",
}

// chineseNumerals covers spoken passenger counts 一位 .. 十位.
var chineseNumerals = map[string]int{
	"一": 1, "兩": 2, "二": 2, "三": 3, "四": 4,
	"五": 5, "六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
}

// taxIDTriggers gate the 8-digit tax-ID rule so arbitrary 8-digit
// numbers are not misread.
var taxIDTriggers = []string{"統編", "統一編號", "公司統編", "tax id", "vat"}
