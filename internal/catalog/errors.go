package catalog

import "errors"

var errMustArchiveBeforeDelete = errors.New("project must be archived before it can be deleted")
