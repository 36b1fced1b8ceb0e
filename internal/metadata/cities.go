package metadata

// city -> province
var majorCities = []struct {
	Name     string
	Province string
}{
	{"Karachi", "Sindh"},
	{"Lahore", "Punjab"},
	{"Islamabad", "Islamabad Capital Territory"},
	{"Rawalpindi", "Punjab"},
	{"Faisalabad", "Punjab"},
	{"Multan", "Punjab"},
	{"Peshawar", "Khyber Pakhtunkhwa"},
	{"Quetta", "Balochistan"},
	{"Gujranwala", "Punjab"},
	{"Sialkot", "Punjab"},
	{"Hyderabad", "Sindh"},
	{"Bahawalpur", "Punjab"},
	{"Sargodha", "Punjab"},
	{"Sukkur", "Sindh"},
	{"Larkana", "Sindh"},
	{"Abbottabad", "Khyber Pakhtunkhwa"},
	{"Mardan", "Khyber Pakhtunkhwa"},
	{"Dera Ismail Khan", "Khyber Pakhtunkhwa"},
	{"Dera Ghazi Khan", "Punjab"},
	{"Sahiwal", "Punjab"},
	{"Gujrat", "Punjab"},
	{"Jhelum", "Punjab"},
	{"Sheikhupura", "Punjab"},
	{"Rahim Yar Khan", "Punjab"},
	{"Gwadar", "Balochistan"},
	{"Turbat", "Balochistan"},
	{"Khuzdar", "Balochistan"},
	{"Muzaffarabad", "Azad Jammu and Kashmir"},
	{"Gilgit", "Gilgit-Baltistan"},
	{"Skardu", "Gilgit-Baltistan"},
	{"Swat", "Khyber Pakhtunkhwa"},
	{"Nowshera", "Khyber Pakhtunkhwa"},
	{"Kohat", "Khyber Pakhtunkhwa"},
	{"Okara", "Punjab"},
	{"Kasur", "Punjab"},
	{"Chiniot", "Punjab"},
	{"Mirpur Khas", "Sindh"},
	{"Nawabshah", "Sindh"},
	{"Jacobabad", "Sindh"},
	{"Thatta", "Sindh"},
}

// ProvinceOf returns the province of a known city.
func ProvinceOf(city string) (string, bool) {
	for _, c := range majorCities {
		if c.Name == city {
			return c.Province, true
		}
	}
	return "", false
}
