package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tracelinehq/traceline-backend/pkg/errors"
)

func TestValidateRejectsZeroIDs(t *testing.T) {
	err := Context{}.Validate()
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = Context{OrganizationID: uuid.New()}.Validate()
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = Context{OrganizationID: uuid.New(), ActorUserID: uuid.New()}.Validate()
	assert.NoError(t, err)
}

func TestGuardDetectsForeignOwner(t *testing.T) {
	tc := Context{OrganizationID: uuid.New(), ActorUserID: uuid.New()}

	assert.NoError(t, Guard(tc, tc.OrganizationID))

	err := Guard(tc, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTenantMismatch))
}
