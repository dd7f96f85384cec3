package keys

// DefaultRanges approximates the populated US ZIP code space by region.
var DefaultRanges = []Range{
	{Name: "Special and MA", Start: 501, End: 999},
	{Name: "MA, RI, CT, NH, VT, ME", Start: 1000, End: 5999},
	{Name: "Puerto Rico, Virgin Islands", Start: 6000, End: 6999},
	{Name: "NJ, NY", Start: 7000, End: 8999},
	{Name: "NY, PA", Start: 9000, End: 14999},
	{Name: "PA, DE, MD", Start: 15000, End: 19999},
	{Name: "DC, VA, MD, WV", Start: 20000, End: 26999},
	{Name: "NC", Start: 27000, End: 28999},
	{Name: "SC", Start: 29000, End: 29999},
	{Name: "GA", Start: 30000, End: 31999},
	{Name: "FL", Start: 32000, End: 34999},
	{Name: "AL", Start: 35000, End: 36999},
	{Name: "TN", Start: 37000, End: 38999},
	{Name: "MS", Start: 39000, End: 39999},
	{Name: "KY, IN", Start: 40000, End: 42999},
	{Name: "OH", Start: 43000, End: 45999},
	{Name: "IN", Start: 46000, End: 47999},
	{Name: "MI", Start: 48000, End: 49999},
	{Name: "IA, MN, WI", Start: 50000, End: 52999},
	{Name: "WI", Start: 53000, End: 54999},
	{Name: "MN", Start: 55000, End: 56999},
	{Name: "SD", Start: 57000, End: 57999},
	{Name: "ND", Start: 58000, End: 58999},
	{Name: "MT", Start: 59000, End: 59999},
	{Name: "IL", Start: 60000, End: 62999},
	{Name: "MO, IA", Start: 63000, End: 65999},
	{Name: "KS", Start: 66000, End: 67999},
	{Name: "NE", Start: 68000, End: 69999},
	{Name: "LA", Start: 70000, End: 71999},
	{Name: "AR", Start: 72000, End: 72999},
	{Name: "OK", Start: 73000, End: 74999},
	{Name: "TX", Start: 75000, End: 79999},
	{Name: "CO", Start: 80000, End: 81999},
	{Name: "WY", Start: 82000, End: 83999},
	{Name: "UT", Start: 84000, End: 84999},
	{Name: "AZ", Start: 85000, End: 86999},
	{Name: "NM", Start: 87000, End: 88999},
	{Name: "NV", Start: 89000, End: 89999},
	{Name: "CA", Start: 90000, End: 96999},
	{Name: "OR", Start: 97000, End: 97999},
	{Name: "WA", Start: 98000, End: 99999},
	{Name: "AK", Start: 99500, End: 99999},
}

// DefaultSpecial lists keys that are easy to miss when working from ranges.
var DefaultSpecial = []string{
	"00501",                   // IRS Holtsville, NY
	"00601", "00602", "00603", // Puerto Rico
	"96799", // Hawaii military
	"99950", // Ketchikan, AK
}

// DefaultCurated lists downtown keys in major metro areas.
var DefaultCurated = []Group{
	{Name: "New York", Keys: []string{
		"10001", "10002", "10003", "10004", "10005", "10006", "10007", "10008", "10009", "10010",
		"10011", "10012", "10013", "10014", "10016", "10017", "10018", "10019", "10020", "10021",
		"10022", "10023", "10024", "10025", "10026", "10027", "10028", "10029", "10030", "10031",
	}},
	{Name: "Los Angeles", Keys: []string{
		"90001", "90002", "90003", "90004", "90005", "90006", "90007", "90008", "90009", "90010",
		"90012", "90013", "90014", "90015", "90016", "90017", "90018", "90019", "90020", "90021",
		"90210", "90211", "90212", "90213", "90230", "90232", "90245", "90272", "90290", "90291",
	}},
	{Name: "San Francisco", Keys: []string{
		"94102", "94103", "94104", "94105", "94107", "94108", "94109", "94110", "94111", "94112",
		"94114", "94115", "94116", "94117", "94118", "94121", "94122", "94123", "94124", "94127",
	}},
	{Name: "Chicago", Keys: []string{
		"60601", "60602", "60603", "60604", "60605", "60606", "60607", "60608", "60610", "60611",
		"60612", "60613", "60614", "60615", "60616", "60617", "60618", "60619", "60620", "60621",
	}},
	{Name: "Boston", Keys: []string{
		"02101", "02102", "02103", "02104", "02105", "02106", "02107", "02108", "02109", "02110",
		"02111", "02112", "02113", "02114", "02115", "02116", "02117", "02118", "02119", "02120",
	}},
	{Name: "Washington DC", Keys: []string{
		"20001", "20002", "20003", "20004", "20005", "20006", "20007", "20008", "20009", "20010",
		"20011", "20012", "20015", "20016", "20017", "20018", "20019", "20020", "20024", "20032",
	}},
	{Name: "Miami", Keys: []string{
		"33101", "33102", "33109", "33111", "33114", "33116", "33119", "33125", "33126", "33127",
		"33128", "33129", "33130", "33131", "33132", "33133", "33134", "33135", "33136", "33137",
	}},
	{Name: "Atlanta", Keys: []string{
		"30301", "30302", "30303", "30304", "30305", "30306", "30307", "30308", "30309", "30310",
		"30311", "30312", "30313", "30314", "30315", "30316", "30317", "30318", "30319", "30324",
	}},
	{Name: "Seattle", Keys: []string{
		"98101", "98102", "98103", "98104", "98105", "98106", "98107", "98108", "98109", "98112",
		"98115", "98116", "98117", "98118", "98119", "98121", "98122", "98125", "98126", "98133",
	}},
	{Name: "Dallas", Keys: []string{
		"75201", "75202", "75203", "75204", "75205", "75206", "75207", "75208", "75209", "75210",
		"75211", "75212", "75214", "75215", "75216", "75217", "75218", "75219", "75220", "75223",
	}},
}
