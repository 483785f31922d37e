/*
Package remote implements the grid-storage capability pair consumed by a
workflow engine: a Provider that identifies the LFN:// addressing scheme
and carries adapter-wide configuration, and an Object that performs
existence, metadata, download and upload operations for one logical file
name by invoking the DIRAC command-line tools.
*/
package remote
