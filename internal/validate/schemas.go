package validate

func location() *ObjectRule {
	return Object(
		Key("lat", Number().Required()),
		Key("lng", Number().Required()),
	)
}

// Signup is the body of POST /auth/signup
var Signup = Object(
	Key("name", String().Min(1).Max(100).Required()),
	Key("phone", String().Min(1).Max(20).Required()),
	Key("email", Email().Required()),
	Key("password", String().Untrimmed().Min(6).Max(100).Required()),
)

// Login accepts either email or phone, never both
var Login = Object(
	Key("email", Email()),
	Key("phone", String().Min(1).Max(20)),
	Key("password", String().Untrimmed().Min(6).Max(100).Required()),
).Xor("email", "phone")

// AlertReport is the body of POST /alerts/report
var AlertReport = Object(
	Key("type", String().Min(2).Max(100).Required()),
	Key("severity", String().Min(2).Max(50).Required()),
	Key("timestamp", Time()),
	Key("location", location().Required()),
	Key("description", String().Max(1000).AllowEmpty()),
)

// SOSTrigger is the body of POST /sos/trigger
var SOSTrigger = Object(
	Key("location", location()),
	Key("description", String().Max(2000).AllowEmpty()),
)
