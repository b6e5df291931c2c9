package taxonomy

// Category defines one bucket and the lowercase keyword stems that vote for
// it. Stems match on word-prefix, so "light" also hits "lights" and
// "lighting".
type Category struct {
	Name     string
	Slug     string
	Keywords []string
}

// CatchAllName is assigned when no category reaches the keyword threshold.
const CatchAllName = "Other"

// DefaultCategories is the default taxonomy for community automation
// blueprints. Order matters only for presentation; an item may land in
// several categories. Deployments can swap the table without touching the
// matching algorithm.
var DefaultCategories = []Category{
	{
		Name: "Lighting",
		Slug: "lighting",
		Keywords: []string{
			"light", "lamp", "bulb", "dim", "brightness", "illuminance",
			"led", "hue", "scene", "lux", "ambiance", "strip",
		},
	},
	{
		Name: "Climate",
		Slug: "climate",
		Keywords: []string{
			"climate", "thermostat", "temperature", "heat", "cool", "hvac",
			"humidity", "radiator", "boiler", "setpoint", "frost", "vent",
		},
	},
	{
		Name: "Security & Alarm",
		Slug: "security-alarm",
		Keywords: []string{
			"alarm", "security", "siren", "intrusion", "arm", "disarm",
			"camera", "doorbell", "alert", "tamper", "breach", "surveillance",
		},
	},
	{
		Name: "Doors & Covers",
		Slug: "doors-covers",
		Keywords: []string{
			"door", "window", "cover", "garage", "gate", "lock",
			"blind", "curtain", "shutter", "awning", "latch",
		},
	},
	{
		Name: "Motion & Presence",
		Slug: "motion-presence",
		Keywords: []string{
			"motion", "presence", "occupancy", "pir", "person", "away",
			"arrive", "depart", "zone", "wasp", "mmwave", "tracker",
		},
	},
	{
		Name: "Media & Audio",
		Slug: "media-audio",
		Keywords: []string{
			"media", "player", "speaker", "volume", "music", "cast",
			"soundbar", "playlist", "radio", "spotify", "tv", "movie",
		},
	},
	{
		Name: "Energy & Power",
		Slug: "energy-power",
		Keywords: []string{
			"energy", "power", "consumption", "solar", "battery", "charge",
			"kwh", "meter", "grid", "tariff", "inverter", "watt",
		},
	},
	{
		Name: "Notifications",
		Slug: "notifications",
		Keywords: []string{
			"notify", "notification", "message", "announce", "tts",
			"reminder", "mobile", "push", "telegram", "actionable", "alexa",
		},
	},
	{
		Name: "Sensors",
		Slug: "sensors",
		Keywords: []string{
			"sensor", "detector", "leak", "smoke", "co2", "moisture",
			"water", "threshold", "binary", "contact", "vibration",
		},
	},
	{
		Name: "Irrigation & Garden",
		Slug: "irrigation-garden",
		Keywords: []string{
			"irrigation", "sprinkler", "garden", "plant", "water",
			"soil", "rain", "lawn", "greenhouse", "valve",
		},
	},
	{
		Name: "Appliances",
		Slug: "appliances",
		Keywords: []string{
			"vacuum", "washing", "dryer", "dishwasher", "appliance",
			"oven", "coffee", "kettle", "fridge", "roomba", "mower",
		},
	},
}
