package sup

// LogLines exposes the stream logger to the external test package.
var LogLines = logLines
