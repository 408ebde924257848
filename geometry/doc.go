package geometry

/*
Package `geometry` holds the pure part of hey-hull: points, the three point orientation test, the convex hull
builders and the shoelace area.

Nothing in here is safe or unsafe for concurrent use, functions never retain nor modify the slices they are given.
Points compare by exact coordinate equality, there is no epsilon anywhere, so that a point removed by value is
the very same point that was added.
*/
