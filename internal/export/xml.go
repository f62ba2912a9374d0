package export

import (
	"encoding/xml"
	"fmt"
	"io"

	"trico-scraper/internal/domain"
)

/*
<course_list>
  <course>
    <field name="Title">Intro to X</field>
    <field name="Instructor">A. Smith</field>
  </course>
</course_list>
*/

type xmlCourseList struct {
	XMLName xml.Name    `xml:"course_list"`
	Courses []xmlCourse `xml:"course"`
}

type xmlCourse struct {
	Fields []xmlField `xml:"field"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// WriteRecordsXML writes records as <field name="..."> elements so that
// arbitrary labels survive without being turned into element names.
func WriteRecordsXML(w io.Writer, records []domain.CourseRecord) error {
	out := xmlCourseList{Courses: make([]xmlCourse, 0, len(records))}
	for _, r := range records {
		c := xmlCourse{Fields: make([]xmlField, 0, r.Len())}
		for _, key := range r.Keys() {
			v, _ := r.Get(key)
			c.Fields = append(c.Fields, xmlField{Name: key, Value: v})
		}
		out.Courses = append(out.Courses, c)
	}

	b, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal xml: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}
