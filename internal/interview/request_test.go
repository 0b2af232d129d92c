package interview

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartRequestValidate(t *testing.T) {
	resume := writeResume(t)

	tests := []struct {
		name   string
		req    StartRequest
		fields []string
	}{
		{
			name: "valid",
			req:  StartRequest{ResumePath: resume, JobRole: " Backend Engineer ", InterviewType: "Technical"},
		},
		{
			name:   "missing everything",
			req:    StartRequest{},
			fields: []string{"resume", "job role", "interview type"},
		},
		{
			name:   "unknown type",
			req:    StartRequest{ResumePath: resume, JobRole: "SRE", InterviewType: "Behavioral"},
			fields: []string{"interview type"},
		},
		{
			name:   "resume missing on disk",
			req:    StartRequest{ResumePath: resume + ".missing", JobRole: "SRE", InterviewType: "HR"},
			fields: []string{"resume"},
		},
		{
			name:   "resume is a directory",
			req:    StartRequest{ResumePath: t.TempDir(), JobRole: "SRE", InterviewType: "Both"},
			fields: []string{"resume"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				require.Equal(t, "Backend Engineer", req.JobRole)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tt.fields, verr.Fields)
			require.Contains(t, err.Error(), "Please upload a resume")
		})
	}
}
