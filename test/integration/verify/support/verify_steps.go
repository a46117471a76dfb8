package support

import (
	"fmt"
	"image/color"
	"reflect"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/testutil"
	"github.com/MeKo-Tech/idcheck/internal/verify"
)

// todayIs fixes the clock used for expiry checks.
func (testCtx *TestContext) todayIs(day string) error {
	d, err := mrz.ParseISODate(day)
	if err != nil {
		return err
	}
	testCtx.Today = d.Time()
	return nil
}

func (testCtx *TestContext) theStoredProfileIs(surname, givenName, dob string) error {
	p, err := verify.NewProfile(surname, givenName, dob)
	if err != nil {
		return err
	}
	testCtx.Profile = p
	return nil
}

func (testCtx *TestContext) aDocumentFor(layout, country, surname, givenNames, birth, expiry string) error {
	id := testutil.Identity{
		Kind:       "ID",
		Country:    country,
		Number:     "X4RTBPFW4",
		Surname:    surname,
		GivenNames: strings.Fields(givenNames),
		Sex:        mrz.SexMale,
	}
	if layout == "TD3" {
		id.Kind = "P<"
	}
	for _, f := range []struct {
		value string
		dst   **mrz.Date
	}{{birth, &id.Birth}, {expiry, &id.Expiry}} {
		d, err := mrz.ParseISODate(f.value)
		if err != nil {
			return err
		}
		*f.dst = &d
	}
	testCtx.Holder = &id
	testCtx.Layout = layout
	return nil
}

func (testCtx *TestContext) theRecognizerReadsTheMRZAfter(garbage int) error {
	text, err := testCtx.mrzText()
	if err != nil {
		return err
	}
	script := make([]string, 0, garbage+1)
	for range garbage {
		script = append(script, testutil.Garbage)
	}
	testCtx.Script = append(script, text)
	return nil
}

func (testCtx *TestContext) theRecognizerReadsTheMRZOnTheFirstAttempt() error {
	return testCtx.theRecognizerReadsTheMRZAfter(0)
}

func (testCtx *TestContext) theRecognizerReadsOnlyGarbage() error {
	testCtx.Script = nil
	return nil
}

func (testCtx *TestContext) theDeclaredDocumentTypeIs(value string) error {
	dt, ok := mrz.ParseDocumentType(value)
	if !ok {
		return fmt.Errorf("unknown document type %q", value)
	}
	testCtx.DocumentType = dt
	return nil
}

func (testCtx *TestContext) aBackImageIsSupplied() error {
	testCtx.Back = testutil.BlankImage(400, 250, color.Gray{Y: 200})
	return nil
}

// theImageCannotBeDecoded replaces side with an upload that failed to decode.
func (testCtx *TestContext) theImageCannotBeDecoded(side string) error {
	if side == verify.SideFront {
		testCtx.Front = nil
	} else {
		testCtx.Back = nil
	}
	testCtx.Unreadable = append(testCtx.Unreadable, side)
	return nil
}

func (testCtx *TestContext) theDocumentIsVerified() error {
	return testCtx.verifyOnce()
}

func (testCtx *TestContext) theStatusShouldBe(want string) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if string(v.Status) != want {
		return fmt.Errorf("expected status %s, got %s (%s)", want, v.Status, v.Message)
	}
	return nil
}

func (testCtx *TestContext) theDocumentShouldBeVerified(not string) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if want := not == ""; v.Verified != want {
		return fmt.Errorf("expected verified=%t, got %t", want, v.Verified)
	}
	return nil
}

func (testCtx *TestContext) theMessageShouldBe(want string) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if v.Message != want {
		return fmt.Errorf("expected message %q, got %q", want, v.Message)
	}
	return nil
}

func (testCtx *TestContext) theFieldShouldMatch(field, not string) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	var got bool
	switch field {
	case "surname":
		got = v.NameMatch
	case "given name":
		got = v.GivenNameMatch
	case "date of birth":
		got = v.DOBMatch
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	if want := not == ""; got != want {
		return fmt.Errorf("expected %s match=%t, got %t", field, want, got)
	}
	return nil
}

func (testCtx *TestContext) theDocumentShouldBeReportedExpired(not string) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if want := not == ""; v.DocumentExpired != want {
		return fmt.Errorf("expected document_expired=%t, got %t", want, v.DocumentExpired)
	}
	return nil
}

func (testCtx *TestContext) theRecordShouldHave(field, want string) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if v.Record == nil {
		return fmt.Errorf("verdict carries no record")
	}
	var got string
	switch field {
	case "format":
		got = string(v.Record.Format)
	case "document type":
		got = string(v.Record.DocumentType)
	case "surname":
		got = v.Record.Surname
	case "issuing country":
		got = v.Record.IssuingCountry
	default:
		return fmt.Errorf("unknown record field %q", field)
	}
	if got != want {
		return fmt.Errorf("expected record %s %q, got %q", field, want, got)
	}
	return nil
}

func (testCtx *TestContext) theVerdictShouldCarryNoRecord() error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if v.Record != nil {
		return fmt.Errorf("expected no record, got %+v", v.Record)
	}
	return nil
}

func (testCtx *TestContext) theVerdictShouldReportAttempts(n int) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if v.Attempts != n {
		return fmt.Errorf("expected %d attempts, got %d", n, v.Attempts)
	}
	return nil
}

func (testCtx *TestContext) theMRZShouldComeFromTheImage(side string) error {
	v, err := testCtx.lastVerdict()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(v.Source, side+":") {
		return fmt.Errorf("expected the MRZ from the %s image, source is %q", side, v.Source)
	}
	return nil
}

func (testCtx *TestContext) bothVerdictsShouldBeIdentical() error {
	if len(testCtx.Verdicts) != 2 {
		return fmt.Errorf("expected 2 verdicts, got %d", len(testCtx.Verdicts))
	}
	if !reflect.DeepEqual(testCtx.Verdicts[0], testCtx.Verdicts[1]) {
		return fmt.Errorf("verdicts differ:\n%+v\n%+v", testCtx.Verdicts[0], testCtx.Verdicts[1])
	}
	return nil
}

func (testCtx *TestContext) recognizersShouldHaveBeenCreated(n int) error {
	created := testCtx.Factory.Created()
	if len(created) != n {
		return fmt.Errorf("expected %d recognizers, got %d", n, len(created))
	}
	for i, r := range created {
		if !r.Closed() {
			return fmt.Errorf("recognizer %d was not closed", i)
		}
	}
	return nil
}

// RegisterVerifySteps registers the verification step definitions.
func (testCtx *TestContext) RegisterVerifySteps(sc *godog.ScenarioContext) {
	sc.Step(`^today is "([^"]*)"$`, testCtx.todayIs)
	sc.Step(`^the stored profile is "([^"]*)" "([^"]*)" born "([^"]*)"$`, testCtx.theStoredProfileIs)
	sc.Step(`^a (TD1|TD2|TD3) document from "([A-Z]{3})" for "([^"]*)" "([^"]*)" born "([^"]*)" expiring "([^"]*)"$`, testCtx.aDocumentFor)
	sc.Step(`^the recognizer reads the MRZ on the first attempt$`, testCtx.theRecognizerReadsTheMRZOnTheFirstAttempt)
	sc.Step(`^the recognizer reads the MRZ after (\d+) unreadable attempts$`, testCtx.theRecognizerReadsTheMRZAfter)
	sc.Step(`^the recognizer reads only garbage$`, testCtx.theRecognizerReadsOnlyGarbage)
	sc.Step(`^the declared document type is "([^"]*)"$`, testCtx.theDeclaredDocumentTypeIs)
	sc.Step(`^a back image is supplied$`, testCtx.aBackImageIsSupplied)
	sc.Step(`^the (front|back) image cannot be decoded$`, testCtx.theImageCannotBeDecoded)

	sc.Step(`^the document is verified(?: again)?$`, testCtx.theDocumentIsVerified)

	sc.Step(`^the status should be "([^"]*)"$`, testCtx.theStatusShouldBe)
	sc.Step(`^the document should (not )?be verified$`, testCtx.theDocumentShouldBeVerified)
	sc.Step(`^the message should be "([^"]*)"$`, testCtx.theMessageShouldBe)
	sc.Step(`^the (surname|given name|date of birth) should (not )?match$`, testCtx.theFieldShouldMatch)
	sc.Step(`^the document should (not )?be reported expired$`, testCtx.theDocumentShouldBeReportedExpired)
	sc.Step(`^the record should have (format|document type|surname|issuing country) "([^"]*)"$`, testCtx.theRecordShouldHave)
	sc.Step(`^the verdict should carry no record$`, testCtx.theVerdictShouldCarryNoRecord)
	sc.Step(`^the verdict should report (\d+) attempts?$`, testCtx.theVerdictShouldReportAttempts)
	sc.Step(`^the MRZ should come from the (front|back) image$`, testCtx.theMRZShouldComeFromTheImage)
	sc.Step(`^both verdicts should be identical$`, testCtx.bothVerdictsShouldBeIdentical)
	sc.Step(`^(\d+) recognizers? should have been created and closed$`, testCtx.recognizersShouldHaveBeenCreated)
}
