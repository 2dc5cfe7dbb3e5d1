// Package seed holds the read-only reference data the app ships with:
// shelters and hospitals for the Hill Tracts map, authority broadcasts,
// and the offline first-aid library.
package seed

import "hillshield/internal/model"

func Shelters() []model.Shelter {
	return []model.Shelter{
		{ID: "1", Name: "Rangamati General Hospital", Type: "hospital", Lat: 22.6485, Lng: 92.1747, Capacity: 500, CurrentOccupancy: 420},
		{ID: "2", Name: "Kaptai Primary School Shelter", Type: "shelter", Lat: 22.5005, Lng: 92.2173, Capacity: 300, CurrentOccupancy: 120},
		{ID: "3", Name: "Safe Zone Alpha - Sajek Valley", Type: "safe-zone", Lat: 23.3855, Lng: 92.2905, Capacity: 1000, CurrentOccupancy: 150},
		{ID: "4", Name: "Bandarban Medical College", Type: "hospital", Lat: 22.1936, Lng: 92.2179, Capacity: 400, CurrentOccupancy: 380},
	}
}

// Broadcasts is an externally-fed feed in a full deployment; timestamps are
// relative to the supplied clock so the seeded items read as recent.
func Broadcasts(nowMillis int64) []model.Broadcast {
	return []model.Broadcast{
		{ID: "b1", Authority: "Emergency Response BD", Message: "Heavy rainfall warning for Chittagong Hill Tracts. Avoid landslide-prone areas.", Type: "warning", Timestamp: nowMillis - 3600_000},
		{ID: "b2", Authority: "Flood Control Dept", Message: "Water levels in Kaptai Lake are rising. Residents in low-lying areas should relocate.", Type: "critical", Timestamp: nowMillis - 7200_000},
	}
}

func FirstAidGuides() []model.FirstAidGuide {
	return []model.FirstAidGuide{
		{
			ID:          "cpr",
			Title:       "CPR (সিপিআর)",
			Description: "শ্বাস বা হৃদস্পন্দন বন্ধ হলে করণীয়।",
			Steps: []string{
				"ব্যক্তিকে শক্ত সমতল জায়গায় শুইয়ে দিন।",
				"বুকের মাঝখানে দুই হাত রেখে প্রতি মিনিটে ১০০-১২০ বার চাপ দিন।",
				"৩০ বার চাপের পর ২ বার মুখে শ্বাস দিন।",
				"সাহায্য না আসা পর্যন্ত চালিয়ে যান।",
			},
			Category: "medical",
		},
		{
			ID:          "bleeding",
			Title:       "রক্তক্ষরণ বন্ধ করা",
			Description: "গুরুতর কাটা বা ক্ষত থেকে রক্তপাত হলে করণীয়।",
			Steps: []string{
				"পরিষ্কার কাপড় দিয়ে ক্ষতস্থানে সরাসরি চাপ দিন।",
				"আহত অঙ্গ হৃদপিণ্ডের চেয়ে উঁচুতে রাখুন।",
				"চাপ না কমিয়ে ব্যান্ডেজ বাঁধুন।",
				"রক্ত বন্ধ না হলে দ্রুত হাসপাতালে নিন।",
			},
			Category: "injury",
		},
		{
			ID:          "landslide",
			Title:       "ভূমিধস",
			Description: "পাহাড়ি এলাকায় ভূমিধসের সময় করণীয়।",
			Steps: []string{
				"ঢাল থেকে দূরে সরে উঁচু ও খোলা জায়গায় যান।",
				"পানির প্রবাহ বা মাটি ফাটার শব্দে সতর্ক থাকুন।",
				"ধসের পরে ক্ষতিগ্রস্ত ভবনে ঢুকবেন না।",
				"আটকে পড়লে শব্দ করে অবস্থান জানান।",
			},
			Category: "natural-disaster",
		},
		{
			ID:          "flood",
			Title:       "বন্যা",
			Description: "আকস্মিক বন্যায় নিরাপদ থাকার নিয়ম।",
			Steps: []string{
				"উঁচু জায়গায় আশ্রয় নিন, স্রোতের পানিতে হাঁটবেন না।",
				"বিদ্যুতের লাইন ও খোলা তার থেকে দূরে থাকুন।",
				"বিশুদ্ধ পানি ও শুকনো খাবার সাথে রাখুন।",
				"সরকারি নির্দেশনা অনুসরণ করুন।",
			},
			Category: "natural-disaster",
		},
		{
			ID:          "snakebite",
			Title:       "সাপে কামড়",
			Description: "সাপে কামড়ালে প্রাথমিক চিকিৎসা।",
			Steps: []string{
				"আক্রান্ত অঙ্গ নাড়াচাড়া বন্ধ রাখুন ও হৃদপিণ্ডের নিচে রাখুন।",
				"কামড়ের স্থান কাটবেন না, চুষবেন না।",
				"শক্ত বাঁধন দেবেন না।",
				"দ্রুত নিকটস্থ হাসপাতালে অ্যান্টিভেনমের জন্য নিন।",
			},
			Category: "medical",
		},
	}
}
