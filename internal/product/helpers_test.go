package product

func f64(v float64) *float64 { return &v }

func between(value, minus, plus float64) *RuleSetting {
	return &RuleSetting{Rule: "BETWEEN", Value: f64(value), Unit: "mm", ToleranceMinus: f64(minus), TolerancePlus: f64(plus)}
}

// rawPoint is a MANUAL SINGLE item judged per sample on raw data.
func rawPoint(nameID string, samples int) Point {
	return Point{
		Setup:                 Setup{Name: nameID, NameID: nameID, SampleAmount: samples, Source: "MANUAL", Type: "SINGLE", Nature: "QUANTITATIVE"},
		EvaluationType:        "PER_SAMPLE",
		EvaluationSetting:     &EvaluationSetting{PerSampleSetting: &PerSampleSetting{IsRawData: true}},
		RuleEvaluationSetting: between(25, 20, 20),
	}
}

// jointPoint is an auto-calculated JOINT item with the given stages; the
// last stage is final.
func jointPoint(nameID string, stages ...string) Point {
	js := &JointSetting{}
	for i, s := range stages {
		js.Formulas = append(js.Formulas, JointFormulaSpec{
			Name:         "stage_" + string(rune('a'+i)),
			Formula:      s,
			IsFinalValue: i == len(stages)-1,
		})
	}
	return Point{
		Setup:                 Setup{Name: nameID, NameID: nameID, SampleAmount: 0, Source: "MANUAL", Type: "SINGLE", Nature: "QUANTITATIVE"},
		EvaluationType:        "JOINT",
		EvaluationSetting:     &EvaluationSetting{JointSetting: js},
		RuleEvaluationSetting: between(25, 50, 50),
	}
}

// withFormula adds a FORMULA variable.
func withFormula(p Point, name, text string) Point {
	p.Variables = append(p.Variables, VariableSpec{Type: "FORMULA", Name: name, Formula: text, IsShow: true})
	return p
}

// chainPoints mirrors a thickness/temperature chain:
// thickness_a, thickness_b, thickness_c -> room_temp -> final_temp -> fix_temp.
func chainPoints() []Point {
	room := withFormula(rawPoint("room_temp", 3), "cross_section", "=(avg(thickness_a)+avg(thickness_b)+avg(thickness_c))/3")
	final := withFormula(rawPoint("final_temp", 3), "final_avg", "=(room_temp.cross_section+avg(thickness_b))/2")
	fix := jointPoint("fix_temp", "room_temp.cross_section + final_temp.final_avg + 10")
	return []Point{
		rawPoint("thickness_a", 3),
		rawPoint("thickness_b", 3),
		rawPoint("thickness_c", 3),
		room,
		final,
		fix,
	}
}

func issueCodes(err error) []string {
	ve, ok := err.(*ValidationError)
	if !ok {
		return nil
	}
	codes := make([]string, len(ve.Issues))
	for i, is := range ve.Issues {
		codes[i] = is.Code
	}
	return codes
}
