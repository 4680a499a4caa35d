// Package sizeof estimates the heap footprint of Go values.
//
// Of is total and proportional to the size of the value it inspects. Values
// that know their size implement Sizer; collectively owned payloads such as
// interned handles implement Shared and are charged only their marginal
// cost, so a payload referenced from many cache entries is not counted many
// times.
//
// Budget tracks a byte limit against accounted usage for one partition.
package sizeof
