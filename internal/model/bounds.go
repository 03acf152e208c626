package model

// Grades are exclusive on both ends so that 0 and 20 are accepted despite
// float rounding.
const (
	GradeMin        float32 = -0.0001
	GradeMax        float32 = 20.0001
	GradeToValidate float32 = 9.9999

	AgeMin = 10
	AgeMax = 100
	// AgeUnknown is carried by students restored from a binary snapshot.
	AgeUnknown = 0

	CoefMin float32 = 0
	CoefMax float32 = 100

	// MaxCourses is the width of the validation bitmask.
	MaxCourses = 32
)

func GradeInBounds(g float32) bool {
	return g > GradeMin && g < GradeMax
}

func AgeInBounds(age int) bool {
	return age >= AgeMin && age <= AgeMax
}

func CoefInBounds(c float32) bool {
	return c >= CoefMin && c <= CoefMax
}
