package extract

// componentTitles maps classifier labels to PER form component titles. An
// empty title means the label has no GO component.
var componentTitles = map[string]string{
	"Activation of Regional and International Support":                "Activation of regional and international support",
	"Affected Population Selection":                                   "Affected population selection",
	"Business Continuity":                                             "Business continuity",
	"Cash and Voucher Assistance":                                     "Cash Based Intervention (CBI)",
	"Communications in Emergencies":                                   "Communication in emergencies",
	"Coordination with Authorities":                                   "Coordination with authorities",
	"Coordination with External Agencies and NGOs":                    "Coordination with External Agencies and NGOs",
	"Coordination with Local Community Level Responders":              "Coordination with local community level responders",
	"Coordination with Movement":                                      "Coordination with Movement",
	"DRM Laws, Advocacy and Dissemination":                            "DRM Laws, Advocacy and Dissemination",
	"Early Action Mechanisms":                                         "Early Action Mechanisms",
	"Emergency Needs Assessment and Planning":                         "Emergency Needs Assessment",
	"Emergency Operations Centre (EOC)":                               "Emergency Operations Centre (EOC)",
	"Emergency Response Procedures (SOP)":                             "Emergency Response Procedures (SOPs)",
	"Finance and Admin. Policy and Emergency Procedures":              "Finance and Admin policy and emergency procedures",
	"Hazard, Context and Risk Analysis, Monitoring and Early Warning": "Hazard, Context and Risk Analysis, Monitoring and Early Warning",
	"Information and Communication Technology (ICT)":                  "Information and Communication Technology (ICT)",
	"Information Management":                                          "Information Management (IM)",
	"Logistics - Logistics Management":                                "LOGISTICS MANAGEMENT",
	"Logistics - Procurement":                                         "PROCUREMENT",
	"Logistics - Warehouse and Stock Management":                      "WAREHOUSE AND STOCK MANAGEMENT",
	"Mapping of NS Capacities":                                        "Mapping of NS capacities",
	"NS Specific Areas of Intervention":                               "NS-specific areas of intervention",
	"Operations Monitoring, Evaluation, Reporting and Learning":       "Operations Monitoring, Evaluation, Reporting and Learning",
	"Pre-Disaster Meetings and Agreements":                            "Pre-disaster meetings and agreements",
	"Preparedness Plans and Budgets":                                  "Preparedness plans and budgets",
	"Quality and Accountability":                                      "Quality and accountability",
	"RC Auxiliary Role, Mandate and Law":                              "RC auxiliary role, Mandate and Law",
	"Resources Mobilisation":                                          "Resource Mobilisation",
	"Response and Recovery Planning":                                  "Response and recovery planning",
	"Risk Management":                                                 "Risk management",
	"Safety and Security Management":                                  "Safety and security management",
	"Staff and Volunteer Management":                                  "Staff and volunteer management",
	"Testing and Learning":                                            "Testing and Learning",
	"Cooperation with Private Sector":                                 "Cooperation with private sector",
	"Disaster Risk Management Strategy":                               "DRM Strategy",
	"Logistics - Supply Chain Management":                             "SUPPLY CHAIN MANAGEMENT",
	"Logistics - Transportation Management":                           "FLEET AND TRANSPORTATION MANAGEMENT",
	"Scenario Planning":                                               "Scenario planning",
	"Civil Military Relations":                                        "Civil Military Relations",
	"Disaster Risk Management Policy":                                 "DRM Policy",
	"information and Communication Technology (ICT)":                  "Information and Communication Technology (ICT)",
	"Coordination with local community level responders":              "Coordination with local community level responders",
	"Emergency Response Procedures (SOPs)":                            "Emergency Response Procedures (SOPs)",
	"Logistics - Transport":                                           "FLEET AND TRANSPORTATION MANAGEMENT",
	"Unknown":                                                         "",
	"Business continuity":                                             "Business continuity",
	"emergency Response Procedures (SOP)":                             "Emergency Response Procedures (SOPs)",
	"National Society Specific Areas of intervention":                 "NS-specific areas of intervention",
}

// sectorLabels maps planned intervention titles to GO primary sector labels.
// An empty label means the intervention has no GO sector.
var sectorLabels = map[string]string{
	"Strategies for implementation":              "",
	"Disaster Risk Reduction and Climate Action": "DRR",
	"Health":                                          "Health (public)",
	"Livelihoods and Basic Needs":                     "Livelihoods and basic needs",
	"Migration and Displacement":                      "Migration",
	"Protection, Gender and Inclusion":                "PGI",
	"Shelter and Settlements":                         "Shelter",
	"Water Sanitation and Hygiene":                    "WASH",
	"Secretariat Services":                            "",
	"National Society Strengthening":                  "NS Strengthening",
	"Water, Sanitation And Hygiene":                   "WASH",
	"Protection, Gender And Inclusion":                "PGI",
	"Shelter Housing And Settlements":                 "Shelter",
	"Livelihoods And Basic Needs":                     "Livelihoods and basic needs",
	"Community Engagement And Accountability":         "CEA",
	"Multi-purpose Cash":                              "Livelihoods and basic needs",
	"Risk Reduction, Climate Adaptation And Recovery": "DRR",
	"Migration":                         "Migration",
	"Education":                         "Education",
	"Shelter and Basic Household Items": "Shelter",
	"Multi Purpose Cash":                "Livelihoods and basic needs",
	"Environmental Sustainability":      "",
	"Migration And Displacement":        "Migration",
	"Coordination And Partnerships":     "NS Strengthening",
}

// SecretariatComponent is the only classifier label attributed to the IFRC Secretariat.
const SecretariatComponent = "Activation of Regional and International Support"

// Finding labels of a planned intervention field.
const (
	FindingLessonsLearnt = "Lessons Learnt"
	FindingChallenges    = "Challenges"
)
