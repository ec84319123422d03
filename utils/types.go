package utils

// AttributeMap is a free-form set of attributes, decoded into a typed configuration by whoever
// consumes it.
type AttributeMap map[string]interface{}
