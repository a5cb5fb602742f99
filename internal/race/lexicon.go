package race

// builtinWords is the seed word list for the in-memory lexicon, with
// rarity scores (0-100, higher = more common). It covers the curated
// alphagram pools so every generated round has at least one valid
// answer in the default dictionary.
var builtinWords = map[string]int{
	// easy pool
	"ATE": 90, "EAT": 97, "TEA": 92, "ETA": 60,
	"ACT": 95, "CAT": 96,
	"AND": 99,
	"OPT": 72, "POT": 90, "TOP": 93,
	"RATE": 88, "TEAR": 85, "TARE": 35,
	"LATE": 92, "TALE": 84, "TEAL": 48,
	"DARE": 80, "DEAR": 88, "READ": 95,
	"TIME": 98, "ITEM": 87, "MITE": 42, "EMIT": 55,
	"POST": 90, "POTS": 78, "SPOT": 86, "STOP": 94, "TOPS": 82, "OPTS": 70,
	"NOTE": 90, "TONE": 85,
	"MATE": 82, "MEAT": 88, "TAME": 75, "TEAM": 93,
	"WORD": 94,

	// medium pool
	"LEAST": 85, "SLATE": 70, "STALE": 65, "STEAL": 78, "TALES": 80, "TEALS": 40,
	"TRACE": 78, "REACT": 82, "CRATE": 70, "CATER": 64, "CARET": 38,
	"SPARE": 80, "SPEAR": 75, "PARSE": 62, "PEARS": 76, "REAPS": 50, "PARES": 35,
	"ALERT": 82, "ALTER": 78, "LATER": 90,
	"PLATE": 84, "PETAL": 68, "LEAPT": 55, "PLEAT": 45,
	"INSET": 52, "STEIN": 44,
	"ZEBRA": 20,
	"EARTH": 92, "HEART": 90, "HATER": 48,
	"DATES": 80, "STEAD": 46, "SATED": 44,
	"STORE": 88, "ROTES": 30,
	"GRAIN": 76,
	"TRIES": 80, "TIRES": 78, "RITES": 55, "TIERS": 66,

	// hard pool
	"LISTEN": 86, "SILENT": 84, "TINSEL": 40, "ENLIST": 56, "INLETS": 46,
	"DANGER": 85, "GARDEN": 87, "GANDER": 42, "RANGED": 58,
	"INSERT": 74, "SINTER": 18, "INTERS": 25,
	"PASTER": 22, "REPAST": 28, "TAPERS": 52, "PRATES": 15,
	"TRACES": 65, "CRATES": 62, "REACTS": 66, "RECAST": 44, "CASTER": 40,
	"ANGELS": 78, "ANGLES": 76, "GLEANS": 35,
	"DIREST": 30, "DRIEST": 50, "STRIDE": 62,
	"ALIENS": 72, "SALINE": 55, "LIANES": 12,
	"REIGNS": 55, "SINGER": 80, "SIGNER": 52, "RESIGN": 58,
	"STAMEN": 38, "AMENTS": 8, "MANTES": 10,

	// expert pool
	"RETAINS": 60, "RETSINA": 12, "STAINER": 15, "NASTIER": 35, "ANESTRI": 5, "RATINES": 8,
	"GRANITE": 65, "TANGIER": 30, "INGRATE": 28, "TEARING": 55,
	"LATRINE": 35, "RELIANT": 45, "RETINAL": 30, "TRENAIL": 5,
	"RESTING": 62, "STINGER": 48,
	"SARDINE": 50, "SANDIER": 15, "RANDIES": 8,
	"SEALING": 52, "LEASING": 56, "LINAGES": 10,
	"CANISTER": 48, "SCANTIER": 18, "CREATINS": 6, "CERATINS": 5,
	"ANGRIEST": 25, "RANGIEST": 10, "GANISTER": 4,
}
