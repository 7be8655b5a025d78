package utils

import (
	"crypto/sha256"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
)

const (
	emptyTagName = "-"
	jsonTagName  = "json"
)

// ciProviders maps a marker environment variable to the provider name and
// the variables carrying its pipeline and job identifiers.
var ciProviders = []struct {
	marker     string
	name       string
	pipelineID string
	jobID      string
}{
	{"GITLAB_CI", "gitlab", "CI_PIPELINE_ID", "CI_JOB_ID"},
	{"GITHUB_ACTIONS", "github", "GITHUB_RUN_ID", "GITHUB_JOB"},
	{"JENKINS_URL", "jenkins", "BUILD_NUMBER", "BUILD_TAG"},
	{"CIRCLECI", "circleci", "CIRCLE_WORKFLOW_ID", "CIRCLE_BUILD_NUM"},
	{"TRAVIS", "travis", "TRAVIS_BUILD_ID", "TRAVIS_JOB_ID"},
}

// Min returns the smaller of x or y.
func Min(x, y int) int {
	if x > y {
		return y
	}
	return x
}

// RepoID derives the stable repository identifier from the repository URL.
func RepoID(repo string) string {
	sum := sha256.Sum256([]byte(repo))
	return fmt.Sprintf("%x", sum)
}

// DetectCI reads the surrounding CI environment. All fields stay empty when
// no known provider marker is set.
func DetectCI() core.CIMetadata {
	for _, p := range ciProviders {
		if _, ok := os.LookupEnv(p.marker); !ok {
			continue
		}
		return core.CIMetadata{
			Provider:   p.name,
			PipelineID: os.Getenv(p.pipelineID),
			JobID:      os.Getenv(p.jobID),
		}
	}
	return core.CIMetadata{}
}

// getValidator returns a struct validator reporting field names from json tags.
func getValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get(jsonTagName), ",", 2)[0]
		if name == emptyTagName {
			return ""
		}
		return name
	})
	return validate
}

// ValidateEnvelope checks the required envelope fields and the coverage
// format tag before the payload enters the pipeline.
func ValidateEnvelope(envelope *core.Envelope) error {
	if err := getValidator().Struct(envelope); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		fields := make([]string, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fields = append(fields, fieldErr.Field())
		}
		return errs.New(fmt.Sprintf("invalid envelope, offending fields: %s", strings.Join(fields, ", ")))
	}
	return nil
}
