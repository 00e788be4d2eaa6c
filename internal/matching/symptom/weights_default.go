package symptom

// defaultWeights is the severity table for the reference corpus vocabulary.
// Rare or severe findings weigh 2.0 to 3.0; tokens not listed weigh 1.0.
var defaultWeights = map[string]float64{
	// weight 3.0
	"muscle_wasting":                  3.0,
	"acute_liver_failure":             3.0,
	"fluid_overload":                  3.0,
	"bloody_stool":                    3.0,
	"slurred_speech":                  3.0,
	"weakness_of_one_body_side":       3.0,
	"toxic_look_(typhos)":             3.0,
	"altered_sensorium":               3.0,
	"coma":                            3.0,
	"stomach_bleeding":                3.0,
	"blood_in_sputum":                 3.0,
	// weight 2.0
	"nodal_skin_eruptions":            2.0,
	"spotting_urination":              2.0,
	"irregular_sugar_level":           2.0,
	"breathlessness":                  2.0,
	"yellowish_skin":                  2.0,
	"dark_urine":                      2.0,
	"yellowing_of_eyes":               2.0,
	"swelling_of_stomach":             2.0,
	"swelled_lymph_nodes":             2.0,
	"blurred_and_distorted_vision":    2.0,
	"chest_pain":                      2.0,
	"fast_heart_rate":                 2.0,
	"bruising":                        2.0,
	"swollen_blood_vessels":           2.0,
	"puffy_face_and_eyes":             2.0,
	"enlarged_thyroid":                2.0,
	"swollen_extremeties":             2.0,
	"muscle_weakness":                 2.0,
	"spinning_movements":              2.0,
	"loss_of_balance":                 2.0,
	"unsteadiness":                    2.0,
	"loss_of_smell":                   2.0,
	"red_spots_over_body":             2.0,
	"polyuria":                        2.0,
	"rusty_sputum":                    2.0,
	"visual_disturbances":             2.0,
	"receiving_blood_transfusion":     2.0,
	"receiving_unsterile_injections":  2.0,
	"distention_of_abdomen":           2.0,
	"prominent_veins_on_calf":         2.0,
	"palpitations":                    2.0,
	// weight 1.0
	"itching":                         1.0,
	"skin_rash":                       1.0,
	"continuous_sneezing":             1.0,
	"shivering":                       1.0,
	"chills":                          1.0,
	"joint_pain":                      1.0,
	"stomach_pain":                    1.0,
	"acidity":                         1.0,
	"ulcers_on_tongue":                1.0,
	"vomiting":                        1.0,
	"burning_micturition":             1.0,
	"fatigue":                         1.0,
	"weight_gain":                     1.0,
	"anxiety":                         1.0,
	"cold_hands_and_feets":            1.0,
	"mood_swings":                     1.0,
	"weight_loss":                     1.0,
	"restlessness":                    1.0,
	"lethargy":                        1.0,
	"patches_in_throat":               1.0,
	"cough":                           1.0,
	"high_fever":                      1.0,
	"sunken_eyes":                     1.0,
	"sweating":                        1.0,
	"dehydration":                     1.0,
	"indigestion":                     1.0,
	"headache":                        1.0,
	"nausea":                          1.0,
	"loss_of_appetite":                1.0,
	"pain_behind_the_eyes":            1.0,
	"back_pain":                       1.0,
	"constipation":                    1.0,
	"abdominal_pain":                  1.0,
	"diarrhoea":                       1.0,
	"mild_fever":                      1.0,
	"yellow_urine":                    1.0,
	"malaise":                         1.0,
	"phlegm":                          1.0,
	"throat_irritation":               1.0,
	"redness_of_eyes":                 1.0,
	"sinus_pressure":                  1.0,
	"runny_nose":                      1.0,
	"congestion":                      1.0,
	"weakness_in_limbs":               1.0,
	"pain_during_bowel_movements":     1.0,
	"pain_in_anal_region":             1.0,
	"irritation_in_anus":              1.0,
	"neck_pain":                       1.0,
	"dizziness":                       1.0,
	"cramps":                          1.0,
	"obesity":                         1.0,
	"swollen_legs":                    1.0,
	"brittle_nails":                   1.0,
	"excessive_hunger":                1.0,
	"extra_marital_contacts":          1.0,
	"drying_and_tingling_lips":        1.0,
	"knee_pain":                       1.0,
	"hip_joint_pain":                  1.0,
	"stiff_neck":                      1.0,
	"swelling_joints":                 1.0,
	"movement_stiffness":              1.0,
	"bladder_discomfort":              1.0,
	"foul_smell_of_urine":             1.0,
	"continuous_feel_of_urine":        1.0,
	"passage_of_gases":                1.0,
	"internal_itching":                1.0,
	"depression":                      1.0,
	"irritability":                    1.0,
	"muscle_pain":                     1.0,
	"belly_pain":                      1.0,
	"abnormal_menstruation":           1.0,
	"dischromic_patches":              1.0,
	"watering_from_eyes":              1.0,
	"increased_appetite":              1.0,
	"family_history":                  1.0,
	"mucoid_sputum":                   1.0,
	"lack_of_concentration":           1.0,
	"history_of_alcohol_consumption":  1.0,
	"painful_walking":                 1.0,
	"pus_filled_pimples":              1.0,
	"blackheads":                      1.0,
	"scurring":                        1.0,
	"skin_peeling":                    1.0,
	"silver_like_dusting":             1.0,
	"small_dents_in_nails":            1.0,
	"inflammatory_nails":              1.0,
	"blister":                         1.0,
	"red_sore_around_nose":            1.0,
	"yellow_crust_ooze":               1.0,
}
