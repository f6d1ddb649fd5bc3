// Package decompress restores the mirror's compressed sidecar files to
// their original form: each downloaded <name>.bz2 becomes <name> and the
// archive is removed, while corrupt archives are recorded and preserved
// for inspection.
package decompress
