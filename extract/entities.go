package extract

// Entity types produced by MatchEntities.
const (
	EntityTeam   = "team"
	EntityPlayer = "player"
	EntityLeague = "league"
	EntityEvent  = "event"
)

// entityLexicon is the curated entity table, matched on word boundaries
// against normalised text. Names are stored lowercase; the slice order
// keeps extraction deterministic.
var entityLexicon = []struct {
	Type  string
	Names []string
}{
	{EntityTeam, []string{
		"lakers", "celtics", "warriors", "knicks", "bulls", "heat",
		"bucks", "suns", "nuggets", "mavericks", "thunder", "cavaliers",
		"chiefs", "eagles", "cowboys", "packers", "49ers", "bills",
		"ravens", "bengals", "lions", "dolphins",
		"yankees", "dodgers", "red sox", "astros", "braves", "mets",
		"cubs", "phillies",
		"maple leafs", "oilers", "rangers", "bruins", "avalanche",
		"panthers",
		"real madrid", "barcelona", "manchester united", "manchester city",
		"liverpool", "arsenal", "chelsea", "bayern munich", "inter miami",
		"juventus", "psg",
	}},
	{EntityPlayer, []string{
		"lebron james", "stephen curry", "kevin durant",
		"giannis antetokounmpo", "nikola jokic", "luka doncic",
		"jayson tatum", "anthony edwards", "victor wembanyama",
		"patrick mahomes", "josh allen", "joe burrow", "lamar jackson",
		"travis kelce", "justin jefferson",
		"shohei ohtani", "aaron judge", "mookie betts", "juan soto",
		"bryce harper",
		"connor mcdavid", "auston matthews", "sidney crosby",
		"lionel messi", "cristiano ronaldo", "kylian mbappe",
		"erling haaland", "jude bellingham",
		"novak djokovic", "carlos alcaraz", "iga swiatek", "coco gauff",
		"scottie scheffler", "tiger woods",
		"max verstappen", "lewis hamilton",
	}},
	{EntityLeague, []string{
		"nba", "nfl", "mlb", "nhl", "mls", "wnba", "ncaa",
		"premier league", "la liga", "serie a", "bundesliga", "ligue 1",
		"champions league", "europa league", "uefa", "fifa",
		"atp", "wta", "pga", "liv golf", "ufc", "formula 1", "nascar",
		"indycar",
	}},
	{EntityEvent, []string{
		"super bowl", "world series", "stanley cup", "nba finals",
		"world cup", "olympics", "march madness", "final four",
		"all star game", "the masters", "wimbledon", "us open",
		"french open", "australian open", "daytona 500",
		"kentucky derby", "monaco grand prix", "trade deadline",
	}},
}

// MatchEntities scans text for curated sports entities and groups the
// matches by type. Absent types are omitted from the map.
func MatchEntities(text string) map[string][]string {
	norm := normWords(text)
	out := make(map[string][]string, len(entityLexicon))
	for _, group := range entityLexicon {
		var found []string
		for _, name := range group.Names {
			if containsWord(norm, name) {
				found = append(found, name)
			}
		}
		if len(found) > 0 {
			out[group.Type] = found
		}
	}
	return out
}
