package tec

import "time"

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// fixture is a small register covering every dimension with a mix of dated
// and undated records.
func fixture() *Dataset {
	return &Dataset{Records: []Record{
		{ProjectName: "Alpha Wind", HostTO: "NGET", PlantType: "Wind Offshore", ProjectStatus: "Scoping", AgreementType: "Directly Connected", ConnectionCap: 1200, MWChange: 200, ConnectionDate: day(2026, 3, 31)},
		{ProjectName: "Alpha Storage", HostTO: "NGET", PlantType: "Energy Storage System", ProjectStatus: "Built", AgreementType: "Embedded", ConnectionCap: 50, MWChange: 50, ConnectionDate: day(2026, 3, 31)},
		{ProjectName: "Beta Wind", HostTO: "SHET", PlantType: "Wind Offshore", ProjectStatus: "Scoping", AgreementType: "Directly Connected", ConnectionCap: 900, MWChange: -100, ConnectionDate: day(2027, 10, 1)},
		{ProjectName: "Gamma Nuclear", HostTO: "NGET", PlantType: "Nuclear", ProjectStatus: "Under Construction", AgreementType: "Directly Connected", ConnectionCap: 3200, MWChange: 0, ConnectionDate: nil},
		{ProjectName: "Delta Wind", HostTO: "SPT", PlantType: "Wind Onshore", ProjectStatus: "Consents Approved", AgreementType: "Embedded", ConnectionCap: 75.5, MWChange: 25.5, ConnectionDate: day(2025, 1, 15)},
	}}
}

// threeRecords is the small owner example: owners A, A, B with capacities
// 10, 20, 5.
func threeRecords() *Dataset {
	return &Dataset{Records: []Record{
		{ProjectName: "p1", HostTO: "A", PlantType: "Wind", ProjectStatus: "Built", AgreementType: "X", ConnectionCap: 10},
		{ProjectName: "p2", HostTO: "A", PlantType: "Solar", ProjectStatus: "Scoping", AgreementType: "X", ConnectionCap: 20},
		{ProjectName: "p3", HostTO: "B", PlantType: "Wind", ProjectStatus: "Built", AgreementType: "Y", ConnectionCap: 5},
	}}
}
