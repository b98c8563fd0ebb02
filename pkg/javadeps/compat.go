package javadeps

import "regexp"

// compatEntry lists known issues when targeting one Java version.
type compatEntry struct {
	removedModules      []string
	minVersions         map[string]string
	recommendedVersions map[string]string
}

// compatibilityDB holds known library constraints per target Java version.
var compatibilityDB = map[string]compatEntry{
	"11": {
		removedModules: []string{
			"javax.xml.bind:jaxb-api",
			"javax.activation:activation",
			"javax.xml.ws:jaxws-api",
			"javax.annotation:javax.annotation-api",
		},
		minVersions: map[string]string{
			"org.springframework.boot:spring-boot-starter-parent": "2.1.0",
			"org.springframework:spring-core":                     "5.1.0",
			"org.hibernate:hibernate-core":                        "5.3.0",
			"junit:junit":                                         "4.12",
			"org.mockito:mockito-core":                            "2.23.0",
		},
	},
	"17": {
		minVersions: map[string]string{
			"org.springframework.boot:spring-boot-starter-parent": "2.5.0",
			"org.springframework:spring-core":                     "5.3.0",
			"org.hibernate:hibernate-core":                        "5.4.24",
			"org.junit.jupiter:junit-jupiter":                     "5.7.0",
			"org.mockito:mockito-core":                            "3.6.0",
			"com.fasterxml.jackson.core:jackson-databind":         "2.12.0",
		},
		recommendedVersions: map[string]string{
			"org.springframework.boot:spring-boot-starter-parent": "3.0.0",
			"jakarta.persistence:jakarta.persistence-api":         "3.0.0",
		},
	},
	"21": {
		minVersions: map[string]string{
			"org.springframework.boot:spring-boot-starter-parent": "3.0.0",
			"org.springframework:spring-core":                     "6.0.0",
			"org.hibernate:hibernate-core":                        "6.1.0",
			"org.junit.jupiter:junit-jupiter":                     "5.9.0",
			"org.mockito:mockito-core":                            "4.0.0",
			"com.fasterxml.jackson.core:jackson-databind":         "2.14.0",
		},
		recommendedVersions: map[string]string{
			"org.springframework.boot:spring-boot-starter-parent": "3.2.0",
			"jakarta.persistence:jakarta.persistence-api":         "3.1.0",
		},
	},
}

var digitsRe = regexp.MustCompile(`\d+`)

// compareVersions compares the numeric runs of two version strings.
// Returns -1 when v1 < v2, 0 when equal or uncomparable, 1 when v1 > v2.
// A shorter sequence compares lower than a longer one with equal prefix.
func compareVersions(v1, v2 string) int {
	parts1 := digitsRe.FindAllString(v1, -1)
	parts2 := digitsRe.FindAllString(v2, -1)

	n := len(parts1)
	if len(parts2) < n {
		n = len(parts2)
	}

	for i := 0; i < n; i++ {
		a, b := atoiSafe(parts1[i]), atoiSafe(parts2[i])
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
	}

	switch {
	case len(parts1) < len(parts2):
		return -1
	case len(parts1) > len(parts2):
		return 1
	}
	return 0
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
